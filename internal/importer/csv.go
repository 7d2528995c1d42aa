package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

// ReadCSV reads a header row followed by data rows. Short rows are padded,
// fully blank rows are dropped.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec := make(Record, len(header))
		blank := true
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
				if strings.TrimSpace(row[i]) != "" {
					blank = false
				}
			}
		}
		if !blank {
			records = append(records, rec)
		}
	}
	return records, nil
}

var exportHeader = []string{
	"id", "name", "city", "website", "address", "emails", "phones", "linkedin",
	"status", "manual_rating", "score", "telemedicine",
}

// WriteCSV writes rows in the order given. cold_emailed is written only when
// the table has that column.
func WriteCSV(w io.Writer, rows []entity.Hospital, withColdEmailed bool) error {
	writer := csv.NewWriter(w)

	header := append([]string(nil), exportHeader...)
	if withColdEmailed {
		header = append(header, "cold_emailed")
	}
	header = append(header, "created_at", "updated_at")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, h := range rows {
		record := []string{
			h.ID,
			h.Name,
			h.City,
			h.Website,
			h.Address,
			strings.Join(h.Emails, ";"),
			strings.Join(h.Phones, ";"),
			h.LinkedIn,
			string(h.Status),
			strconv.Itoa(h.ManualRating),
			strconv.FormatFloat(h.Score, 'f', -1, 64),
			formatYesNo(h.Telemedicine),
		}
		if withColdEmailed {
			record = append(record, formatYesNo(h.ColdEmailed))
		}
		record = append(record, formatTime(h.CreatedAt), formatTime(h.UpdatedAt))
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", h.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatYesNo(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
