package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PropertyKind enumerates the property value kinds a metadata record can carry.
type PropertyKind string

const (
	PropertySelect      PropertyKind = "select"
	PropertyMultiSelect PropertyKind = "multi_select"
	PropertyTitle       PropertyKind = "title"
	PropertyRichText    PropertyKind = "rich_text"
	PropertyNumber      PropertyKind = "number"
	PropertyCheckbox    PropertyKind = "checkbox"
	PropertyDate        PropertyKind = "date"
	PropertyRelation    PropertyKind = "relation"
	PropertyOpaque      PropertyKind = "opaque"
)

// DateRange is the value of a date property. End is empty for single dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Property is a tagged value: Kind selects which of the value fields is
// meaningful. Use the constructors rather than building one by hand.
type Property struct {
	Kind     PropertyKind    `json:"kind"`
	Text     string          `json:"text,omitempty"`     // select, title, rich_text
	List     []string        `json:"list,omitempty"`     // multi_select, relation
	Number   *float64        `json:"number,omitempty"`   // number
	Checkbox bool            `json:"checkbox,omitempty"` // checkbox
	Date     *DateRange      `json:"date,omitempty"`     // date
	Raw      json.RawMessage `json:"raw,omitempty"`      // opaque
}

func SelectProperty(name string) Property { return Property{Kind: PropertySelect, Text: name} }

func MultiSelectProperty(names ...string) Property {
	return Property{Kind: PropertyMultiSelect, List: names}
}

func TitleProperty(text string) Property { return Property{Kind: PropertyTitle, Text: text} }

func RichTextProperty(text string) Property { return Property{Kind: PropertyRichText, Text: text} }

func NumberProperty(n float64) Property { return Property{Kind: PropertyNumber, Number: &n} }

func CheckboxProperty(v bool) Property { return Property{Kind: PropertyCheckbox, Checkbox: v} }

func DateProperty(start, end string) Property {
	return Property{Kind: PropertyDate, Date: &DateRange{Start: start, End: end}}
}

func RelationProperty(ids ...string) Property { return Property{Kind: PropertyRelation, List: ids} }

// OpaqueProperty keeps an unrecognized value verbatim.
func OpaqueProperty(raw json.RawMessage) Property {
	return Property{Kind: PropertyOpaque, Raw: append(json.RawMessage(nil), raw...)}
}

// String renders the value as display text.
func (p Property) String() string {
	switch p.Kind {
	case PropertySelect, PropertyTitle, PropertyRichText:
		return p.Text
	case PropertyMultiSelect, PropertyRelation:
		return strings.Join(p.List, ", ")
	case PropertyNumber:
		if p.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*p.Number, 'f', -1, 64)
	case PropertyCheckbox:
		return strconv.FormatBool(p.Checkbox)
	case PropertyDate:
		if p.Date == nil {
			return ""
		}
		if p.Date.End == "" {
			return p.Date.Start
		}
		return p.Date.Start + "/" + p.Date.End
	default:
		return string(p.Raw)
	}
}

func (p Property) clone() Property {
	out := p
	if p.List != nil {
		out.List = append([]string(nil), p.List...)
	}
	if p.Number != nil {
		n := *p.Number
		out.Number = &n
	}
	if p.Date != nil {
		d := *p.Date
		out.Date = &d
	}
	if p.Raw != nil {
		out.Raw = append(json.RawMessage(nil), p.Raw...)
	}
	return out
}
