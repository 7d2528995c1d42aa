package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

var ErrDuplicate = errors.New("record already exists")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Tables names the hospitals table and its audit table.
type Tables struct {
	Hospitals  string
	ColdEmails string
}

func DefaultTables() Tables {
	return Tables{Hospitals: "hospitals", ColdEmails: "cold_emails"}
}

// Validate rejects anything that is not a plain SQL identifier; table names
// are interpolated into statements.
func (t Tables) Validate() error {
	for _, name := range []string{t.Hospitals, t.ColdEmails} {
		if !identifier.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}

// orderable are the columns a Select may order by.
var orderable = map[string]bool{"created_at": true, "updated_at": true, "name": true}

// writable are the columns a patch may set.
var writable = map[string]bool{
	"name": true, "city": true, "website": true, "address": true,
	"emails": true, "phones": true, "linkedin": true, "status": true,
	"manual_rating": true, "score": true, "telemedicine": true, "cold_emailed": true,
}

// HospitalStore reads and writes the hospitals table with plain SQL. It
// serves both postgres and sqlite through a Dialect.
type HospitalStore struct {
	DB      *sql.DB
	Dialect Dialect
	Tables  Tables
	now     func() time.Time
}

func NewHospitalStore(db *sql.DB, d Dialect, tables Tables) (*HospitalStore, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &HospitalStore{DB: db, Dialect: d, Tables: tables, now: time.Now}, nil
}

func (s *HospitalStore) Select(ctx context.Context, q entity.Query) (entity.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return entity.Snapshot{}, err
	}

	var args []any
	query := "SELECT * FROM " + s.Tables.Hospitals
	if len(q.IDs) > 0 {
		query += " WHERE id IN (" + s.bind(&args, stringsToAny(q.IDs)...) + ")"
	}
	if q.OrderBy != "" {
		if !orderable[q.OrderBy] {
			return entity.Snapshot{}, fmt.Errorf("cannot order by %q", q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s, id %s", q.OrderBy, dir, dir)
	}

	rows, cols, err := s.query(ctx, s.DB, query, args...)
	if err != nil {
		return entity.Snapshot{}, s.translate(fmt.Errorf("select hospitals: %w", err))
	}
	return entity.Snapshot{Rows: rows, Columns: cols}, nil
}

func (s *HospitalStore) Update(ctx context.Context, patch entity.Patch, ids []string) ([]entity.Hospital, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("update hospitals: empty patch")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var (
		args []any
		sets []string
	)
	for _, c := range cols {
		if !writable[c.Name] {
			return nil, fmt.Errorf("update hospitals: column %q is not writable", c.Name)
		}
		sets = append(sets, c.Name+" = "+s.bind(&args, s.encode(c.Value)))
	}
	sets = append(sets, "updated_at = "+s.bind(&args, s.Dialect.TimeValue(s.now())))
	where := s.bind(&args, stringsToAny(ids)...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id IN (%s) RETURNING *",
		s.Tables.Hospitals, strings.Join(sets, ", "), where)

	rows, _, err := s.query(ctx, s.DB, query, args...)
	if err != nil {
		return nil, s.translate(fmt.Errorf("update hospitals: %w", err))
	}
	return rows, nil
}

// Insert writes every record in one transaction and returns them as stored.
func (s *HospitalStore) Insert(ctx context.Context, records []entity.NewHospital) ([]entity.Hospital, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var out []entity.Hospital
	for _, rec := range records {
		now := s.now()
		status := rec.Status
		if status == "" {
			status = entity.StatusNew
		}

		names := []string{"id", "name", "city", "website", "address", "emails", "phones",
			"linkedin", "status", "manual_rating", "score"}
		values := []any{uuid.NewString(), rec.Name, rec.City, rec.Website, rec.Address,
			s.Dialect.ListValue(rec.Emails), s.Dialect.ListValue(rec.Phones), rec.LinkedIn,
			string(status), rec.ManualRating, rec.Score()}
		// Optional columns are only named when set, so tables without them still accept inserts.
		if rec.Telemedicine != nil {
			names = append(names, "telemedicine")
			values = append(values, *rec.Telemedicine)
		}
		if rec.ColdEmailed != nil {
			names = append(names, "cold_emailed")
			values = append(values, *rec.ColdEmailed)
		}
		names = append(names, "created_at", "updated_at")
		values = append(values, s.Dialect.TimeValue(now), s.Dialect.TimeValue(now))

		var args []any
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			s.Tables.Hospitals, strings.Join(names, ", "), s.bind(&args, values...))

		rows, _, err := s.query(ctx, tx, query, args...)
		if err != nil {
			return nil, s.translate(fmt.Errorf("insert hospital %q: %w", rec.Name, err))
		}
		out = append(out, rows...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return out, nil
}

func (s *HospitalStore) InsertColdEmail(ctx context.Context, audit entity.ColdEmail) error {
	var args []any
	query := fmt.Sprintf("INSERT INTO %s (hospital_id, acted_by, note, created_at) VALUES (%s)",
		s.Tables.ColdEmails,
		s.bind(&args, audit.HospitalID, audit.ActedBy, audit.Note, s.Dialect.TimeValue(s.now())))
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return s.translate(fmt.Errorf("insert cold email: %w", err))
	}
	return nil
}

// Ping reports whether the database answers.
func (s *HospitalStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *HospitalStore) query(ctx context.Context, q queryer, query string, args ...any) ([]entity.Hospital, []string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out []entity.Hospital
	for rows.Next() {
		h, err := s.scan(rows, cols)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, h)
	}
	return out, cols, rows.Err()
}

// scan maps a row by column name. Columns the service does not know about
// are read and discarded.
func (s *HospitalStore) scan(rows *sql.Rows, cols []string) (entity.Hospital, error) {
	var (
		id, name, city, website, address, linkedin, status sql.NullString
		rating                                             sql.NullInt64
		score                                              sql.NullFloat64
		telemedicine, coldEmailed                          sql.NullBool
		emails, phones                                     = s.Dialect.NewList(), s.Dialect.NewList()
		createdAt, updatedAt                               = s.Dialect.NewTime(), s.Dialect.NewTime()
	)

	dest := make([]any, len(cols))
	for i, c := range cols {
		switch c {
		case "id":
			dest[i] = &id
		case "name":
			dest[i] = &name
		case "city":
			dest[i] = &city
		case "website":
			dest[i] = &website
		case "address":
			dest[i] = &address
		case "emails":
			dest[i] = emails
		case "phones":
			dest[i] = phones
		case "linkedin":
			dest[i] = &linkedin
		case "status":
			dest[i] = &status
		case "manual_rating":
			dest[i] = &rating
		case "score":
			dest[i] = &score
		case "telemedicine":
			dest[i] = &telemedicine
		case "cold_emailed":
			dest[i] = &coldEmailed
		case "created_at":
			dest[i] = createdAt
		case "updated_at":
			dest[i] = updatedAt
		default:
			dest[i] = new(any)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return entity.Hospital{}, fmt.Errorf("scan hospital: %w", err)
	}

	h := entity.Hospital{
		ID:           id.String,
		Name:         name.String,
		City:         city.String,
		Website:      website.String,
		Address:      address.String,
		Emails:       emails.Strings(),
		Phones:       phones.Strings(),
		LinkedIn:     linkedin.String,
		Status:       entity.Status(status.String),
		ManualRating: int(rating.Int64),
		Score:        score.Float64,
		CreatedAt:    createdAt.Time(),
		UpdatedAt:    updatedAt.Time(),
	}
	if telemedicine.Valid {
		h.Telemedicine = entity.Bool(telemedicine.Bool)
	}
	if coldEmailed.Valid {
		h.ColdEmailed = entity.Bool(coldEmailed.Bool)
	}
	return h, nil
}

// bind appends values to args and returns their comma separated placeholders.
func (s *HospitalStore) bind(args *[]any, values ...any) string {
	marks := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		marks[i] = s.Dialect.Placeholder(len(*args))
	}
	return strings.Join(marks, ", ")
}

func (s *HospitalStore) encode(v any) any {
	if list, ok := v.([]string); ok {
		return s.Dialect.ListValue(list)
	}
	return v
}

var sqliteMissingColumn = regexp.MustCompile(`no such column: (\w+)|has no column named (\w+)`)

// translate maps driver errors the service reacts to onto its own errors.
func (s *HospitalStore) translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Message)
		case "42703":
			return &usecase.SchemaError{Table: s.Tables.Hospitals, Column: quotedName(pqErr.Message)}
		}
		return err
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %s", ErrDuplicate, sqliteErr.Error())
		}
	}
	if m := sqliteMissingColumn.FindStringSubmatch(err.Error()); m != nil {
		col := m[1]
		if col == "" {
			col = m[2]
		}
		return &usecase.SchemaError{Table: s.Tables.Hospitals, Column: col}
	}
	return err
}

// quotedName pulls the first double-quoted name out of a postgres message.
func quotedName(msg string) string {
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(msg[start+1:], '"')
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
