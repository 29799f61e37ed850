package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harrisonrobin/morningbrief/pkg/notion"
)

// fakeStore is an in-memory task database that evaluates query filters the
// way Notion does for the condition kinds the resolver emits.
type fakeStore struct {
	mu sync.Mutex

	loc     *time.Location
	db      *notion.Database
	dbErr   error
	pages   []notion.Page
	related map[string]notion.Page
	// failQuery, when set, decides per request whether a query fails.
	failQuery func(req notion.QueryRequest) error
	pageErr   map[string]error

	retrieveCalls int
	queries       []notion.QueryRequest
	pageCalls     map[string]int
}

func newFakeStore(loc *time.Location, props map[string]notion.PropertySchema, pages ...notion.Page) *fakeStore {
	return &fakeStore{
		loc:       loc,
		db:        &notion.Database{ID: "db", Properties: props},
		pages:     pages,
		related:   make(map[string]notion.Page),
		pageErr:   make(map[string]error),
		pageCalls: make(map[string]int),
	}
}

func (s *fakeStore) RetrieveDatabase(_ context.Context, _ string) (*notion.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retrieveCalls++
	if s.dbErr != nil {
		return nil, s.dbErr
	}
	return s.db, nil
}

func (s *fakeStore) QueryDatabase(_ context.Context, _ string, req notion.QueryRequest) (*notion.QueryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, req)
	if s.failQuery != nil {
		if err := s.failQuery(req); err != nil {
			return nil, err
		}
	}

	var out []notion.Page
	for _, p := range s.pages {
		if s.match(req.Filter, p) {
			out = append(out, p)
		}
	}
	if len(req.Sorts) > 0 {
		prop := req.Sorts[0].Property
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := s.due(out[i], prop)
			b, bok := s.due(out[j], prop)
			if !aok || !bok {
				return aok
			}
			return a.Before(b)
		})
	}

	resp := &notion.QueryResponse{}
	if req.PageSize > 0 && len(out) > req.PageSize {
		out = out[:req.PageSize]
		resp.HasMore = true
	}
	resp.Results = out
	return resp, nil
}

func (s *fakeStore) RetrievePage(_ context.Context, id string) (*notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCalls[id]++
	if err := s.pageErr[id]; err != nil {
		return nil, err
	}
	p, ok := s.related[id]
	if !ok {
		return nil, &notion.APIError{Status: 404, Code: "object_not_found", Message: "not found"}
	}
	return &p, nil
}

func (s *fakeStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *fakeStore) due(p notion.Page, prop string) (time.Time, bool) {
	v, ok := p.Properties[prop]
	if !ok || v.Date == nil {
		return time.Time{}, false
	}
	t, err := v.Date.StartTime(s.loc)
	return t, err == nil
}

func (s *fakeStore) match(f *notion.Filter, p notion.Page) bool {
	if f == nil {
		return true
	}
	if len(f.And) > 0 {
		for i := range f.And {
			if !s.match(&f.And[i], p) {
				return false
			}
		}
		return true
	}
	if len(f.Or) > 0 {
		for i := range f.Or {
			if s.match(&f.Or[i], p) {
				return true
			}
		}
		return false
	}

	v := p.Properties[f.Property]
	switch {
	case f.Date != nil:
		due, ok := s.due(p, f.Property)
		if !ok {
			return false
		}
		return dateMatch(*f.Date, due)
	case f.Status != nil:
		var value string
		if v.Status != nil {
			value = v.Status.Name
		}
		return valueMatch(*f.Status, value)
	case f.Select != nil:
		var value string
		if v.Select != nil {
			value = v.Select.Name
		}
		return valueMatch(*f.Select, value)
	case f.Checkbox != nil:
		checked := v.Checkbox != nil && *v.Checkbox
		return checked == f.Checkbox.Equals
	}
	return true
}

func dateMatch(c notion.DateCondition, due time.Time) bool {
	bound := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			panic(fmt.Sprintf("bad bound %q", s))
		}
		return t
	}
	if c.Before != "" && !due.Before(bound(c.Before)) {
		return false
	}
	if c.After != "" && !due.After(bound(c.After)) {
		return false
	}
	if c.OnOrBefore != "" && due.After(bound(c.OnOrBefore)) {
		return false
	}
	if c.OnOrAfter != "" && due.Before(bound(c.OnOrAfter)) {
		return false
	}
	return true
}

func valueMatch(c notion.ValueCondition, value string) bool {
	switch {
	case c.Equals != "":
		return value == c.Equals
	case c.DoesNotEqual != "":
		return value != c.DoesNotEqual
	case c.IsNotEmpty:
		return value != ""
	}
	return true
}

var errBoom = errors.New("boom")

// Page builders.

func title(s string) notion.PropertyValue {
	return notion.PropertyValue{Type: notion.TypeTitle, Title: []notion.RichText{{PlainText: s}}}
}

func dateValue(s string) notion.PropertyValue {
	return notion.PropertyValue{Type: notion.TypeDate, Date: &notion.DateValue{Start: s}}
}

func statusValue(s string) notion.PropertyValue {
	v := notion.PropertyValue{Type: notion.TypeStatus}
	if s != "" {
		v.Status = &notion.Option{Name: s}
	}
	return v
}

func selectValue(s string) notion.PropertyValue {
	v := notion.PropertyValue{Type: notion.TypeSelect}
	if s != "" {
		v.Select = &notion.Option{Name: s}
	}
	return v
}

func relationValue(ids ...string) notion.PropertyValue {
	v := notion.PropertyValue{Type: notion.TypeRelation, Relation: []notion.Reference{}}
	for _, id := range ids {
		v.Relation = append(v.Relation, notion.Reference{ID: id})
	}
	return v
}

func checkboxValue(b bool) notion.PropertyValue {
	return notion.PropertyValue{Type: notion.TypeCheckbox, Checkbox: &b}
}

func page(id string, props map[string]notion.PropertyValue) notion.Page {
	return notion.Page{ID: id, URL: "https://www.notion.so/" + id, Properties: props}
}

func options(names ...string) *notion.OptionsConfig {
	cfg := &notion.OptionsConfig{}
	for _, n := range names {
		cfg.Options = append(cfg.Options, notion.Option{Name: n})
	}
	return cfg
}
