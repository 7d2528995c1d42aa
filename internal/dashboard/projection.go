package dashboard

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

// All disables a city or status filter.
const All = "All"

type SortKey string

const (
	SortNone      SortKey = ""
	SortName      SortKey = "name"
	SortCreatedAt SortKey = "created_at"
)

// Criteria are the dashboard's filter and sort controls.
type Criteria struct {
	Search string
	City   string
	Status string
	Sort   SortKey
	Desc   bool
}

type Counts struct {
	Total        int `json:"total"`
	Closed       int `json:"closed"`
	Open         int `json:"open"`
	Telemedicine int `json:"telemedicine"`
	ColdEmailed  int `json:"cold_emailed"`
}

// View is what the dashboard renders.
type View struct {
	Rows     []entity.Hospital `json:"rows"`
	Counts   Counts            `json:"counts"`
	Features Features          `json:"features"`
	Cities   []string          `json:"cities"`
	Statuses []string          `json:"statuses"`
}

// Project derives the visible rows and the counters. It never mutates rows.
// Counters always cover the whole cache, not the filtered subset.
func Project(rows []entity.Hospital, features Features, c Criteria, tag language.Tag) View {
	needle := strings.ToLower(strings.TrimSpace(c.Search))

	visible := make([]entity.Hospital, 0, len(rows))
	for _, h := range rows {
		if needle != "" && !strings.Contains(haystack(h), needle) {
			continue
		}
		if active(c.City) && h.City != c.City {
			continue
		}
		if active(c.Status) && string(h.Status) != c.Status {
			continue
		}
		visible = append(visible, h)
	}

	if cmp := comparator(c.Sort, tag); cmp != nil {
		if c.Desc {
			asc := cmp
			cmp = func(a, b entity.Hospital) int { return asc(b, a) }
		}
		slices.SortStableFunc(visible, cmp)
	}

	return View{
		Rows:     visible,
		Counts:   countRows(rows, features),
		Features: features,
		Cities:   distinctCities(rows),
		Statuses: statusOptions(rows),
	}
}

func active(filter string) bool {
	return filter != "" && filter != All
}

func haystack(h entity.Hospital) string {
	parts := []string{h.Name, h.City, strings.Join(h.Emails, " "), strings.Join(h.Phones, " "), h.Address}
	return strings.ToLower(strings.Join(parts, " "))
}

// comparator returns nil for keys that keep fetch order.
func comparator(key SortKey, tag language.Tag) func(a, b entity.Hospital) int {
	switch key {
	case SortName:
		// Collators are not safe for concurrent use; one per projection.
		col := collate.New(tag)
		return func(a, b entity.Hospital) int {
			return col.CompareString(a.Name, b.Name)
		}
	case SortCreatedAt:
		return func(a, b entity.Hospital) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	return nil
}

func countRows(rows []entity.Hospital, features Features) Counts {
	var c Counts
	c.Total = len(rows)
	for _, h := range rows {
		if h.Status.Closed() {
			c.Closed++
		}
		if h.Telemedicine != nil && *h.Telemedicine {
			c.Telemedicine++
		}
		if features.ColdEmailed && h.ColdEmailed != nil && *h.ColdEmailed {
			c.ColdEmailed++
		}
	}
	c.Open = c.Total - c.Closed
	return c
}

func distinctCities(rows []entity.Hospital) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range rows {
		if h.City == "" || seen[h.City] {
			continue
		}
		seen[h.City] = true
		out = append(out, h.City)
	}
	sort.Strings(out)
	return out
}

// statusOptions lists the writable statuses plus any legacy value present in rows.
func statusOptions(rows []entity.Hospital) []string {
	out := make([]string, 0, len(entity.Statuses)+2)
	seen := map[entity.Status]bool{}
	for _, s := range entity.Statuses {
		out = append(out, string(s))
		seen[s] = true
	}
	for _, h := range rows {
		if h.Status != "" && !seen[h.Status] {
			seen[h.Status] = true
			out = append(out, string(h.Status))
		}
	}
	return out
}
