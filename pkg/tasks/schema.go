package tasks

import (
	"sort"
	"strings"

	"github.com/harrisonrobin/morningbrief/pkg/notion"
)

var (
	dueCandidates       = []string{"Due", "Due date", "Due Date", "Date"}
	statusNames         = []string{"done", "status"}
	defaultDoneValues   = []string{"Done", "done", "Completed", "completed"}
	doneOptionNames     = []string{"done", "completed", "finished", "closed"}
	areaRelationName    = "area"
	areaLabelCandidates = []string{"Area", "area", "AREA", "Category", "category", "Project", "project"}
)

// fallbackDueProperty is queried when no date column can be found at all. The
// queries will match nothing, which surfaces as empty buckets.
const fallbackDueProperty = "Due"

// Schema records which concrete database columns play each role. It is built
// once per Resolve call.
type Schema struct {
	Properties map[string]notion.PropertySchema
	// Sampled is set when the database listed no properties and the types
	// were inferred from one live record.
	Sampled bool

	Title string
	Due   string
	// DueRule names the rule that picked Due, for logging.
	DueRule string

	Status     string
	StatusType string
	DoneValues []string
	doneSet    map[string]bool

	AreaRelation string
	AreaLabels   []string

	DoneCheckbox string
}

// IsDone reports whether a status or select value counts as completed.
func (s *Schema) IsDone(value string) bool {
	return s.doneSet[value]
}

// rule is one step in a priority-ordered property search.
type rule struct {
	desc  string
	match func(name string, p notion.PropertySchema) bool
}

// firstMatch evaluates rules in order and returns the first property that
// satisfies one. Within a rule, properties are visited by name so the result
// does not depend on map iteration order.
func firstMatch(props map[string]notion.PropertySchema, rules ...rule) (string, string, bool) {
	names := sortedNames(props)
	for _, r := range rules {
		for _, name := range names {
			if r.match(name, props[name]) {
				return name, r.desc, true
			}
		}
	}
	return "", "", false
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ofType(typ string) rule {
	return rule{
		desc:  "first " + typ + " property",
		match: func(_ string, p notion.PropertySchema) bool { return p.Type == typ },
	}
}

func named(name, typ string) rule {
	return rule{
		desc:  "named " + name,
		match: func(n string, p notion.PropertySchema) bool { return n == name && p.Type == typ },
	}
}

func namedFold(names []string, typ string) rule {
	return rule{
		desc: typ + " named " + strings.Join(names, "/"),
		match: func(n string, p notion.PropertySchema) bool {
			if p.Type != typ {
				return false
			}
			for _, want := range names {
				if strings.EqualFold(n, want) {
					return true
				}
			}
			return false
		},
	}
}

// discoverSchema resolves every role from the declared (or sampled) property
// map and the caller's overrides.
func discoverSchema(props map[string]notion.PropertySchema, opts Options) *Schema {
	s := &Schema{
		Properties:   props,
		AreaLabels:   areaLabelCandidates,
		DoneCheckbox: opts.DoneCheckbox,
	}

	s.Title, _, _ = firstMatch(props, ofType(notion.TypeTitle))

	s.Due, s.DueRule = resolveDue(props, opts.DueProperty)

	s.Status, s.StatusType = resolveStatus(props, opts.StatusProperty)
	s.DoneValues = resolveDoneValues(s.Status, props[s.Status], opts.DoneValues)
	s.doneSet = make(map[string]bool, len(s.DoneValues))
	for _, v := range s.DoneValues {
		s.doneSet[v] = true
	}

	s.AreaRelation, _, _ = firstMatch(props, namedFold([]string{areaRelationName}, notion.TypeRelation))

	return s
}

func resolveDue(props map[string]notion.PropertySchema, override string) (string, string) {
	if override != "" {
		return override, "override"
	}
	rules := make([]rule, 0, len(dueCandidates)+1)
	for _, cand := range dueCandidates {
		rules = append(rules, named(cand, notion.TypeDate))
	}
	rules = append(rules, ofType(notion.TypeDate))
	if name, desc, ok := firstMatch(props, rules...); ok {
		return name, desc
	}
	return fallbackDueProperty, "fallback"
}

// resolveStatus returns the completion column and its type. Status-typed
// columns win over select-typed ones. An override whose type is unknown is
// assumed to be status-typed.
func resolveStatus(props map[string]notion.PropertySchema, override string) (string, string) {
	if override != "" {
		if p, ok := props[override]; ok && p.Type != "" {
			return override, p.Type
		}
		return override, notion.TypeStatus
	}
	name, _, ok := firstMatch(props,
		namedFold(statusNames, notion.TypeStatus),
		namedFold(statusNames, notion.TypeSelect),
	)
	if !ok {
		return "", ""
	}
	return name, props[name].Type
}

// resolveDoneValues returns the sorted set of values meaning "completed".
// Explicit values win. Otherwise declared options whose name reads as
// completed are used, so values that cannot occur never reach a query filter.
// Without such options the common defaults apply.
func resolveDoneValues(status string, def notion.PropertySchema, explicit []string) []string {
	set := make(map[string]bool)
	for _, v := range explicit {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	if len(set) > 0 || status == "" {
		return sortedNames(set)
	}

	for _, opt := range def.Options() {
		lower := strings.ToLower(opt.Name)
		for _, want := range doneOptionNames {
			if lower == want {
				set[opt.Name] = true
			}
		}
	}
	if len(set) == 0 {
		for _, v := range defaultDoneValues {
			set[v] = true
		}
	}
	return sortedNames(set)
}

// sampleProperties derives a type-only property map from one live record.
func sampleProperties(page notion.Page) map[string]notion.PropertySchema {
	props := make(map[string]notion.PropertySchema, len(page.Properties))
	for name, v := range page.Properties {
		props[name] = notion.PropertySchema{Type: v.Type}
	}
	return props
}
