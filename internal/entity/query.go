package entity

// Query selects rows of the hospitals table. Empty IDs selects every row.
type Query struct {
	IDs     []string
	OrderBy string
	Desc    bool
}

// Snapshot is a full Select result: rows in fetch order plus the result set's columns.
type Snapshot struct {
	Rows    []Hospital
	Columns []string
}

// HasColumn reports whether the result set carried the column.
func (s Snapshot) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}
