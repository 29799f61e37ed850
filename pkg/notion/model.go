package notion

import (
	"fmt"
	"strings"
	"time"
)

// Property types the task resolver understands.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeDate        = "date"
	TypeStatus      = "status"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
	TypeRelation    = "relation"
	TypeCheckbox    = "checkbox"
)

// Database is the subset of a Notion database object used for schema discovery.
type Database struct {
	ID         string                    `json:"id"`
	Properties map[string]PropertySchema `json:"properties"`
}

// PropertySchema is a declared database column.
type PropertySchema struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name,omitempty"`
	Type   string         `json:"type"`
	Status *OptionsConfig `json:"status,omitempty"`
	Select *OptionsConfig `json:"select,omitempty"`
}

// OptionsConfig lists the declared options of a status or select column.
type OptionsConfig struct {
	Options []Option `json:"options"`
}

// Options returns the declared option list for status and select columns.
func (p PropertySchema) Options() []Option {
	switch {
	case p.Type == TypeStatus && p.Status != nil:
		return p.Status.Options
	case p.Type == TypeSelect && p.Select != nil:
		return p.Select.Options
	}
	return nil
}

type Option struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Page is a database row.
type Page struct {
	ID         string                   `json:"id"`
	URL        string                   `json:"url,omitempty"`
	Properties map[string]PropertyValue `json:"properties"`
}

// PropertyValue holds one property of a page. Only the field matching Type is set.
type PropertyValue struct {
	ID          string      `json:"id,omitempty"`
	Type        string      `json:"type"`
	Title       []RichText  `json:"title,omitempty"`
	RichText    []RichText  `json:"rich_text,omitempty"`
	Date        *DateValue  `json:"date,omitempty"`
	Status      *Option     `json:"status,omitempty"`
	Select      *Option     `json:"select,omitempty"`
	MultiSelect []Option    `json:"multi_select,omitempty"`
	Relation    []Reference `json:"relation,omitempty"`
	Checkbox    *bool       `json:"checkbox,omitempty"`
}

type RichText struct {
	PlainText string `json:"plain_text"`
}

type Reference struct {
	ID string `json:"id"`
}

// DateValue is a Notion date. Start is either a calendar date (2006-01-02)
// or an ISO-8601 datetime.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

const dateOnlyLayout = "2006-01-02"

// StartTime parses Start. Date-only values are midnight in loc.
func (d *DateValue) StartTime(loc *time.Location) (time.Time, error) {
	if d == nil || d.Start == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return ParseTime(d.Start, loc)
}

// ParseTime accepts the date and datetime shapes Notion returns.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if len(s) == len(dateOnlyLayout) {
		t, err := time.ParseInLocation(dateOnlyLayout, s, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse Notion date '%s': %w", s, err)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse Notion datetime '%s': %w", s, err)
	}
	return t, nil
}

// PlainText joins the trimmed plain_text fragments of a rich text array.
func PlainText(parts []RichText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.TrimSpace(p.PlainText))
	}
	return b.String()
}

// Text returns a display string for label-like properties: title, rich text,
// select, and the first multi-select option. Relations need a page fetch and
// yield "".
func (v PropertyValue) Text() string {
	switch v.Type {
	case TypeTitle:
		return PlainText(v.Title)
	case TypeRichText:
		return PlainText(v.RichText)
	case TypeSelect:
		if v.Select != nil {
			return v.Select.Name
		}
	case TypeStatus:
		if v.Status != nil {
			return v.Status.Name
		}
	case TypeMultiSelect:
		if len(v.MultiSelect) > 0 {
			return v.MultiSelect[0].Name
		}
	}
	return ""
}

// Filter is a (possibly compound) database query filter.
type Filter struct {
	Property string             `json:"property,omitempty"`
	Date     *DateCondition     `json:"date,omitempty"`
	Status   *ValueCondition    `json:"status,omitempty"`
	Select   *ValueCondition    `json:"select,omitempty"`
	Checkbox *CheckboxCondition `json:"checkbox,omitempty"`
	And      []Filter           `json:"and,omitempty"`
	Or       []Filter           `json:"or,omitempty"`
}

type DateCondition struct {
	Before     string `json:"before,omitempty"`
	After      string `json:"after,omitempty"`
	OnOrBefore string `json:"on_or_before,omitempty"`
	OnOrAfter  string `json:"on_or_after,omitempty"`
}

type ValueCondition struct {
	Equals       string `json:"equals,omitempty"`
	DoesNotEqual string `json:"does_not_equal,omitempty"`
	IsNotEmpty   bool   `json:"is_not_empty,omitempty"`
}

type CheckboxCondition struct {
	Equals bool `json:"equals"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

const Ascending = "ascending"

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter   *Filter `json:"filter,omitempty"`
	Sorts    []Sort  `json:"sorts,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

type QueryResponse struct {
	Results []Page `json:"results"`
	HasMore bool   `json:"has_more"`
}
