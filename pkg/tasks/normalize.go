package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/morningbrief/pkg/index"
	"github.com/harrisonrobin/morningbrief/pkg/logging"
	"github.com/harrisonrobin/morningbrief/pkg/model"
	"github.com/harrisonrobin/morningbrief/pkg/notion"
)

// normalizer turns raw pages into tasks for one Resolve call.
type normalizer struct {
	store  Store
	schema *Schema
	loc    *time.Location
	areas  *index.NameIndex
	once   *logging.Once
	log    zerolog.Logger
}

func (n *normalizer) task(ctx context.Context, page notion.Page) model.Task {
	props := page.Properties

	n.once.Do("properties", func() {
		types := make(map[string]string, len(props))
		for name, v := range props {
			types[name] = v.Type
		}
		n.log.Debug().Interface("properties", types).Msg("task properties available")
	})

	t := model.Task{
		ID:   page.ID,
		Name: n.name(page),
		URL:  page.URL,
	}

	if v, ok := props[n.schema.Due]; ok && v.Type == notion.TypeDate && v.Date != nil && v.Date.Start != "" {
		t.DueRaw = v.Date.Start
		if due, err := v.Date.StartTime(n.loc); err == nil {
			t.Due = &due
		} else {
			n.log.Warn().Err(err).Str("task", page.ID).Msg("unparseable due date")
		}
	}

	if area := n.area(ctx, page, t.Name); area != "" {
		t.Area = &area
	}
	t.Done = n.done(page, t.Name)
	return t
}

// name returns the title text, the page id when no title column exists, or
// the untitled placeholder.
func (n *normalizer) name(page notion.Page) string {
	titleProp := n.schema.Title
	if titleProp == "" {
		for _, name := range sortedNames(page.Properties) {
			if page.Properties[name].Type == notion.TypeTitle {
				titleProp = name
				break
			}
		}
	}

	var name string
	if titleProp != "" {
		name = page.Properties[titleProp].Text()
	} else {
		name = page.ID
	}
	if strings.TrimSpace(name) == "" {
		return model.UntitledTask
	}
	return name
}

func (n *normalizer) done(page notion.Page, name string) bool {
	props := page.Properties
	var done bool

	if n.schema.Status != "" {
		v, ok := props[n.schema.Status]
		var value string
		switch {
		case !ok:
			n.once.Do("status-missing", func() {
				n.log.Warn().Str("status_property", n.schema.Status).Strs("available", sortedNames(props)).
					Msg("status property not found on task")
			})
		case v.Type == notion.TypeStatus && v.Status != nil:
			value = v.Status.Name
		case v.Type == notion.TypeSelect && v.Select != nil:
			value = v.Select.Name
		}

		if value != "" {
			done = n.schema.IsDone(value)
			n.once.Do("status-value", func() {
				n.log.Debug().Str("task", name).Str("status_property", n.schema.Status).
					Str("type", v.Type).Str("value", value).Bool("done", done).
					Msg("first task status")
			})
		} else if ok {
			n.once.Do("status-empty", func() {
				n.log.Debug().Str("status_property", n.schema.Status).Str("type", v.Type).
					Msg("status property has no value")
			})
		}
	}

	if !done && n.schema.DoneCheckbox != "" {
		if v, ok := props[n.schema.DoneCheckbox]; ok && v.Type == notion.TypeCheckbox && v.Checkbox != nil {
			done = *v.Checkbox
		}
	}
	return done
}

// area resolves the area label. A relation named "area" is followed to its
// first referenced page; otherwise label-like candidate columns are scanned.
func (n *normalizer) area(ctx context.Context, page notion.Page, name string) string {
	props := page.Properties

	relProp := n.schema.AreaRelation
	if relProp == "" {
		for _, pname := range sortedNames(props) {
			if props[pname].Type == notion.TypeRelation && strings.EqualFold(pname, areaRelationName) {
				relProp = pname
				break
			}
		}
	}

	if v, ok := props[relProp]; ok && relProp != "" && v.Type == notion.TypeRelation {
		n.once.Do("area-relation", func() {
			n.log.Debug().Str("property", relProp).Int("relations", len(v.Relation)).
				Msg("found area relation property")
		})
		if len(v.Relation) > 0 {
			if label := n.relatedTitle(ctx, v.Relation[0].ID, name); label != "" {
				return label
			}
		}
	} else {
		n.once.Do("no-area-relation", func() {
			var relations []string
			for _, pname := range sortedNames(props) {
				if props[pname].Type == notion.TypeRelation {
					relations = append(relations, pname)
				}
			}
			n.log.Debug().Strs("relation_properties", relations).Msg("no area relation, scanning label properties")
		})
	}

	for _, cand := range n.schema.AreaLabels {
		if v, ok := props[cand]; ok {
			if label := v.Text(); label != "" {
				return label
			}
		}
	}
	return ""
}

// relatedTitle fetches a related page's title, memoized by page id. A failed
// fetch degrades to "" for this task only.
func (n *normalizer) relatedTitle(ctx context.Context, id, taskName string) string {
	if id == "" {
		return ""
	}
	if label, ok := n.areas.Get(id); ok {
		return label
	}

	page, err := n.store.RetrievePage(ctx, id)
	if err != nil {
		n.log.Warn().Err(err).Str("task", truncate(taskName, 50)).Str("related_page", id).
			Msg("failed to fetch area relation")
		n.areas.Set(id, "")
		return ""
	}

	var label string
	for _, pname := range sortedNames(page.Properties) {
		if v := page.Properties[pname]; v.Type == notion.TypeTitle {
			label = v.Text()
			break
		}
	}
	n.areas.Set(id, label)
	return label
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
