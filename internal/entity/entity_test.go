package entity

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreForRating(t *testing.T) {
	for rating := 0; rating <= MaxRating; rating++ {
		assert.Equal(t, float64(rating*20), ScoreForRating(rating), "rating %d", rating)
	}
	assert.Equal(t, 0.0, ScoreForRating(-3))
	assert.Equal(t, 100.0, ScoreForRating(9))
}

func TestStatus(t *testing.T) {
	s, err := ParseStatus("  Contacted ")
	require.NoError(t, err)
	assert.Equal(t, StatusContacted, s)

	_, err = ParseStatus("closed")
	assert.Error(t, err, "legacy values are read-only")

	for _, closed := range []Status{StatusLegacyClosed, StatusLegacyReached} {
		assert.True(t, closed.Closed(), string(closed))
	}
	for _, open := range Statuses {
		assert.False(t, open.Closed(), string(open))
	}
}

func TestPatchApply_RatingCarriesScore(t *testing.T) {
	rating := 3
	h := Hospital{ID: "h1", Name: "A", ManualRating: 1, Score: 20, Emails: []string{"a@x.com"}}

	got := Patch{ManualRating: &rating}.Apply(h)

	assert.Equal(t, 3, got.ManualRating)
	assert.Equal(t, 60.0, got.Score)
	assert.Equal(t, 1, h.ManualRating, "input is not mutated")

	got.Emails[0] = "changed"
	assert.Equal(t, "a@x.com", h.Emails[0], "apply does not share slices")
}

func TestPatchColumns(t *testing.T) {
	rating := 4
	status := StatusReplied
	flag := true
	got := Patch{ManualRating: &rating, Status: &status, ColdEmailed: &flag}.Columns()

	want := []Column{
		{Name: "status", Value: "replied"},
		{Name: "manual_rating", Value: 4},
		{Name: "score", Value: 80.0},
		{Name: "cold_emailed", Value: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchValidate(t *testing.T) {
	bad := 6
	assert.Error(t, Patch{ManualRating: &bad}.Validate())

	legacy := StatusLegacyReached
	assert.Error(t, Patch{Status: &legacy}.Validate())

	empty := ""
	assert.Error(t, Patch{Name: &empty}.Validate())

	assert.True(t, Patch{}.IsEmpty())
}

func TestPatchFromJSON(t *testing.T) {
	raw := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"won","manual_rating":2,"emails":["a@x.com"],"telemedicine":true}`), &raw))

	p, err := PatchFromJSON(raw)
	require.NoError(t, err)
	require.NotNil(t, p.Status)
	assert.Equal(t, StatusWon, *p.Status)
	assert.Equal(t, 2, *p.ManualRating)
	assert.Equal(t, []string{"a@x.com"}, *p.Emails)
	assert.True(t, *p.Telemedicine)
	assert.Nil(t, p.ColdEmailed)
}

func TestPatchFromJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"score":      `{"score":50}`,
		"unknown":    `{"id":"other"}`,
		"wrong type": `{"manual_rating":"five"}`,
		"range":      `{"manual_rating":7}`,
		"status":     `{"status":"pending"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			raw := map[string]json.RawMessage{}
			require.NoError(t, json.Unmarshal([]byte(body), &raw))
			_, err := PatchFromJSON(raw)

			var fe *FieldError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestEventMask(t *testing.T) {
	assert.True(t, AllEvents.Matches(ChangeInsert))
	assert.True(t, AllEvents.Matches(ChangeDelete))
	assert.False(t, MaskInsert.Matches(ChangeUpdate))
	assert.True(t, MaskInsert.Matches(ChangeResync))
	assert.False(t, AllEvents.Matches("TRUNCATE"))
}

func TestSnapshotHasColumn(t *testing.T) {
	s := Snapshot{Columns: []string{"id", "cold_emailed"}}
	assert.True(t, s.HasColumn("cold_emailed"))
	assert.False(t, s.HasColumn("telemedicine"))
}
