package tasks

import (
	"github.com/harrisonrobin/morningbrief/pkg/notion"
	"github.com/harrisonrobin/morningbrief/pkg/overdue"
)

// Queries holds the three bucket queries in execution order.
type Queries struct {
	Overdue  notion.QueryRequest
	Today    notion.QueryRequest
	Upcoming notion.QueryRequest
}

// notDone builds the predicate excluding completed records, or nil when no
// completion column is known.
//
// Status columns combine several done values with OR. Select columns combine
// them with AND unless legacySelectAnd is false, in which case they follow the
// status branch.
func (s *Schema) notDone(legacySelectAnd bool) *notion.Filter {
	if s.Status == "" {
		return nil
	}

	cond := func(vc *notion.ValueCondition) notion.Filter {
		f := notion.Filter{Property: s.Status}
		if s.StatusType == notion.TypeSelect {
			f.Select = vc
		} else {
			f.Status = vc
		}
		return f
	}

	if len(s.DoneValues) == 0 {
		f := cond(&notion.ValueCondition{IsNotEmpty: true})
		return &f
	}
	if len(s.DoneValues) == 1 {
		f := cond(&notion.ValueCondition{DoesNotEqual: s.DoneValues[0]})
		return &f
	}

	parts := make([]notion.Filter, 0, len(s.DoneValues))
	for _, v := range s.DoneValues {
		parts = append(parts, cond(&notion.ValueCondition{DoesNotEqual: v}))
	}
	if s.StatusType == notion.TypeSelect && legacySelectAnd {
		return &notion.Filter{And: parts}
	}
	return &notion.Filter{Or: parts}
}

func (s *Schema) checkboxNotDone() *notion.Filter {
	if s.DoneCheckbox == "" {
		return nil
	}
	return &notion.Filter{Property: s.DoneCheckbox, Checkbox: &notion.CheckboxCondition{Equals: false}}
}

// BuildQueries returns the overdue, today and upcoming queries for the window.
// Each is sorted by due date ascending.
func (s *Schema) BuildQueries(w overdue.Window, opts Options) Queries {
	var exclusions []notion.Filter
	if f := s.notDone(opts.LegacySelectAnd); f != nil {
		exclusions = append(exclusions, *f)
	}
	if f := s.checkboxNotDone(); f != nil {
		exclusions = append(exclusions, *f)
	}

	due := func(c notion.DateCondition) notion.Filter {
		return notion.Filter{Property: s.Due, Date: &c}
	}
	query := func(dateParts ...notion.Filter) notion.QueryRequest {
		and := append(dateParts, exclusions...)
		return notion.QueryRequest{
			Filter:   &notion.Filter{And: and},
			Sorts:    []notion.Sort{{Property: s.Due, Direction: notion.Ascending}},
			PageSize: opts.pageSize(),
		}
	}

	return Queries{
		Overdue: query(due(notion.DateCondition{Before: w.StartISO})),
		Today: query(
			due(notion.DateCondition{OnOrAfter: w.StartISO}),
			due(notion.DateCondition{OnOrBefore: w.EndISO}),
		),
		Upcoming: query(
			due(notion.DateCondition{After: w.EndISO}),
			due(notion.DateCondition{Before: w.HorizonISO()}),
		),
	}
}
