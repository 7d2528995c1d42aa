package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/hospital-leads/internal/infra/database"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exportRecords(t *testing.T, store ...string) [][]string {
	t.Helper()
	out, err := execute(t, append(store, "export", "--sort", "name")...)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestHospitalctl_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "hospitals.db")
	store := []string{"--driver", "sqlite", "--sqlite", dbPath, "--migrate", "--operator", "cli-test"}

	csvPath := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Name,City,Email,Rating,Telemedicine\n"+
			"Beta Clinic,Porto,b@x.com,2,yes\n"+
			"Alpha Hospital,Lisbon,a@x.com;a2@x.com,4,no\n"+
			",Nowhere,,,\n"), 0o600))

	out, err := execute(t, append(store, "import", csvPath)...)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 2, skipped 1, failed 0")

	out, err = execute(t, append(store, "list", "--sort", "name")...)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Alpha Hospital"), strings.Index(out, "Beta Clinic"))
	assert.Contains(t, out, "total 2  open 2  closed 0  telemedicine 1")

	records := exportRecords(t, store...)
	require.Len(t, records, 3)
	header := records[0]
	assert.Contains(t, header, "cold_emailed")
	alphaID := records[1][0]
	betaID := records[2][0]
	assert.Equal(t, "Alpha Hospital", records[1][1])
	assert.Equal(t, "a@x.com;a2@x.com", records[1][5])

	_, err = execute(t, append(store, "status", "won", alphaID)...)
	require.NoError(t, err)

	out, err = execute(t, append(store, "rate", betaID, "5")...)
	require.NoError(t, err)
	assert.Contains(t, out, "score 100")

	_, err = execute(t, append(store, "cold-email", betaID, "--note", "intro sent")...)
	require.NoError(t, err)

	out, err = execute(t, append(store, "list", "--status", "won")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha Hospital")
	assert.NotContains(t, out, "Beta Clinic")
	assert.Contains(t, out, "open 2  closed 0")
	assert.Contains(t, out, "cold-emailed 1")

	db, err := database.NewSQLiteConnection(context.Background(), dbPath)
	require.NoError(t, err)
	defer db.Close()
	var actedBy, note string
	require.NoError(t, db.QueryRow("SELECT acted_by, note FROM cold_emails WHERE hospital_id = ?", betaID).Scan(&actedBy, &note))
	assert.Equal(t, "cli-test", actedBy)
	assert.Equal(t, "intro sent", note)
}

func TestHospitalctl_RejectsBadInput(t *testing.T) {
	store := []string{"--driver", "sqlite", "--sqlite", filepath.Join(t.TempDir(), "h.db"), "--migrate"}

	_, err := execute(t, append(store, "status", "closed", "some-id")...)
	assert.Error(t, err)

	_, err = execute(t, append(store, "rate", "some-id", "lots")...)
	assert.Error(t, err)

	_, err = execute(t, append(store, "rate", "missing-id", "3")...)
	assert.Error(t, err)
}

func TestHospitalctl_MissingCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := execute(t, "--driver", "postgres", "list")
	assert.ErrorContains(t, err, "DATABASE_URL is not configured")
}
