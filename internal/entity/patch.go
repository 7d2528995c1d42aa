package entity

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Patch is a partial Hospital. Nil fields are left untouched.
// Score is not patchable; it follows ManualRating.
type Patch struct {
	Name         *string
	City         *string
	Website      *string
	Address      *string
	Emails       *[]string
	Phones       *[]string
	LinkedIn     *string
	Status       *Status
	ManualRating *int
	Telemedicine *bool
	ColdEmailed  *bool
}

// Column is one SET clause of a store update.
type Column struct {
	Name  string
	Value any
}

// FieldError reports a rejected patch field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (p Patch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Validate checks ranges and enums only.
func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return &FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", *p.Status)}
	}
	if p.ManualRating != nil && (*p.ManualRating < 0 || *p.ManualRating > MaxRating) {
		return &FieldError{Field: "manual_rating", Message: fmt.Sprintf("must be between 0 and %d", MaxRating)}
	}
	if p.Name != nil && *p.Name == "" {
		return &FieldError{Field: "name", Message: "must not be empty"}
	}
	return nil
}

// Touches reports whether the patch writes the named column.
func (p Patch) Touches(column string) bool {
	for _, c := range p.Columns() {
		if c.Name == column {
			return true
		}
	}
	return false
}

// Columns returns the store columns written by the patch in a stable order.
func (p Patch) Columns() []Column {
	var cols []Column
	add := func(name string, v any) { cols = append(cols, Column{Name: name, Value: v}) }

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.City != nil {
		add("city", *p.City)
	}
	if p.Website != nil {
		add("website", *p.Website)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Emails != nil {
		add("emails", cloneStrings(*p.Emails))
	}
	if p.Phones != nil {
		add("phones", cloneStrings(*p.Phones))
	}
	if p.LinkedIn != nil {
		add("linkedin", *p.LinkedIn)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.ManualRating != nil {
		add("manual_rating", *p.ManualRating)
		add("score", ScoreForRating(*p.ManualRating))
	}
	if p.Telemedicine != nil {
		add("telemedicine", *p.Telemedicine)
	}
	if p.ColdEmailed != nil {
		add("cold_emailed", *p.ColdEmailed)
	}
	return cols
}

// Apply returns h with the patch written over it.
func (p Patch) Apply(h Hospital) Hospital {
	out := h.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.City != nil {
		out.City = *p.City
	}
	if p.Website != nil {
		out.Website = *p.Website
	}
	if p.Address != nil {
		out.Address = *p.Address
	}
	if p.Emails != nil {
		out.Emails = cloneStrings(*p.Emails)
	}
	if p.Phones != nil {
		out.Phones = cloneStrings(*p.Phones)
	}
	if p.LinkedIn != nil {
		out.LinkedIn = *p.LinkedIn
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ManualRating != nil {
		out.ManualRating = *p.ManualRating
		out.Score = ScoreForRating(*p.ManualRating)
	}
	if p.Telemedicine != nil {
		out.Telemedicine = cloneBool(p.Telemedicine)
	}
	if p.ColdEmailed != nil {
		out.ColdEmailed = cloneBool(p.ColdEmailed)
	}
	return out
}

// PatchFromJSON decodes the loosely typed `updates` object of PATCH /hospitals.
// Unknown keys are rejected so they never reach the store as column names.
func PatchFromJSON(updates map[string]json.RawMessage) (Patch, error) {
	var p Patch

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := updates[key]
		var err error
		switch key {
		case "name":
			p.Name, err = decodeField[string](raw)
		case "city":
			p.City, err = decodeField[string](raw)
		case "website":
			p.Website, err = decodeField[string](raw)
		case "address":
			p.Address, err = decodeField[string](raw)
		case "linkedin":
			p.LinkedIn, err = decodeField[string](raw)
		case "emails":
			p.Emails, err = decodeField[[]string](raw)
		case "phones":
			p.Phones, err = decodeField[[]string](raw)
		case "status":
			p.Status, err = decodeField[Status](raw)
		case "manual_rating":
			p.ManualRating, err = decodeField[int](raw)
		case "telemedicine":
			p.Telemedicine, err = decodeField[bool](raw)
		case "cold_emailed":
			p.ColdEmailed, err = decodeField[bool](raw)
		case "score":
			return Patch{}, &FieldError{Field: key, Message: "is derived from manual_rating"}
		default:
			return Patch{}, &FieldError{Field: key, Message: "unknown field"}
		}
		if err != nil {
			return Patch{}, &FieldError{Field: key, Message: err.Error()}
		}
	}
	return p, p.Validate()
}

func decodeField[T any](raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	return &v, nil
}
