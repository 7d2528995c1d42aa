package importer

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

//go:embed synonyms.yaml
var defaultSynonyms []byte

// Record is one loosely typed input row keyed by header.
type Record map[string]string

// Mapper turns Records into insert payloads using a header synonym table.
type Mapper struct {
	synonyms map[string][]string
}

var (
	defaultOnce   sync.Once
	defaultMapper *Mapper
)

// DefaultMapper uses the embedded synonym table.
func DefaultMapper() *Mapper {
	defaultOnce.Do(func() {
		m, err := LoadMapper(strings.NewReader(string(defaultSynonyms)))
		if err != nil {
			panic(fmt.Sprintf("embedded synonyms: %v", err))
		}
		defaultMapper = m
	})
	return defaultMapper
}

// LoadMapper reads a YAML synonym table (field -> list of headers).
func LoadMapper(r io.Reader) (*Mapper, error) {
	raw := map[string][]string{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode synonyms: %w", err)
	}
	m := &Mapper{synonyms: make(map[string][]string, len(raw))}
	for field, headers := range raw {
		for _, h := range headers {
			m.synonyms[field] = append(m.synonyms[field], NormalizeHeader(h))
		}
	}
	if len(m.synonyms["name"]) == 0 {
		return nil, fmt.Errorf("synonyms: name has no headers")
	}
	return m, nil
}

var headerSeparators = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeHeader lower-cases a header and turns spaces and dashes into underscores.
func NormalizeHeader(h string) string {
	return headerSeparators.Replace(strings.ToLower(strings.TrimSpace(h)))
}

// Map builds an insert payload. ok is false when no name header has a value;
// such rows are skipped, not reported as errors.
func (m *Mapper) Map(rec Record) (entity.NewHospital, bool) {
	norm := make(map[string]string, len(rec))
	for k, v := range rec {
		key := NormalizeHeader(k)
		if _, dup := norm[key]; dup && strings.TrimSpace(v) == "" {
			continue
		}
		norm[key] = v
	}

	name := m.lookup(norm, "name")
	if name == "" {
		return entity.NewHospital{}, false
	}

	h := entity.NewHospital{
		Name:     name,
		City:     m.lookup(norm, "city"),
		Website:  m.lookup(norm, "website"),
		Address:  m.lookup(norm, "address"),
		Emails:   SplitList(m.lookup(norm, "emails")),
		Phones:   SplitList(m.lookup(norm, "phones")),
		LinkedIn: m.lookup(norm, "linkedin"),
		Status:   entity.StatusNew,
	}
	if s, err := entity.ParseStatus(m.lookup(norm, "status")); err == nil {
		h.Status = s
	}
	if r, err := strconv.Atoi(m.lookup(norm, "manual_rating")); err == nil && r >= 0 && r <= entity.MaxRating {
		h.ManualRating = r
	}
	h.Telemedicine = ParseYesNo(m.lookup(norm, "telemedicine"))
	h.ColdEmailed = ParseYesNo(m.lookup(norm, "cold_emailed"))
	return h, true
}

func (m *Mapper) lookup(norm map[string]string, field string) string {
	for _, header := range m.synonyms[field] {
		if v := strings.TrimSpace(norm[header]); v != "" {
			return v
		}
	}
	return ""
}

var listSeparator = regexp.MustCompile(`[;,]`)

// SplitList splits a multi-valued cell on ';' or ',' and drops blanks.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range listSeparator.Split(raw, -1) {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseYesNo reads y/yes-like values as true and n/no-like values as false.
// Anything else is unknown.
func ParseYesNo(raw string) *bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(v, "y"):
		return entity.Bool(true)
	case strings.HasPrefix(v, "n"):
		return entity.Bool(false)
	}
	return nil
}
