package entity

import (
	"math"
	"time"
)

// Hospital is one prospect row of the hospitals table.
type Hospital struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	Website      string    `json:"website"`
	Address      string    `json:"address"`
	Emails       []string  `json:"emails"`
	Phones       []string  `json:"phones"`
	LinkedIn     string    `json:"linkedin"`
	Status       Status    `json:"status"`
	ManualRating int       `json:"manual_rating"`
	Score        float64   `json:"score"`
	Telemedicine *bool     `json:"telemedicine,omitempty"`
	ColdEmailed  *bool     `json:"cold_emailed,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no slices or pointers with h.
func (h Hospital) Clone() Hospital {
	c := h
	c.Emails = cloneStrings(h.Emails)
	c.Phones = cloneStrings(h.Phones)
	c.Telemedicine = cloneBool(h.Telemedicine)
	c.ColdEmailed = cloneBool(h.ColdEmailed)
	return c
}

// NewHospital is the insert payload. id, score and timestamps are assigned by the store.
type NewHospital struct {
	Name         string   `json:"name"`
	City         string   `json:"city"`
	Website      string   `json:"website"`
	Address      string   `json:"address"`
	Emails       []string `json:"emails"`
	Phones       []string `json:"phones"`
	LinkedIn     string   `json:"linkedin"`
	Status       Status   `json:"status"`
	ManualRating int      `json:"manual_rating"`
	Telemedicine *bool    `json:"telemedicine,omitempty"`
	ColdEmailed  *bool    `json:"cold_emailed,omitempty"`
}

// Score returns the derived score for the payload's rating.
func (n NewHospital) Score() float64 {
	return ScoreForRating(n.ManualRating)
}

// MaxRating is the upper bound of manual_rating.
const MaxRating = 5

// ScoreForRating maps a 0..5 rating to a 0..100 score rounded to two decimals.
func ScoreForRating(rating int) float64 {
	score := float64(rating) * 20
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneBool(in *bool) *bool {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
