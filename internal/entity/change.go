package entity

// ChangeKind is the kind of write reported by the store's change feed.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
	// ChangeResync means the feed may have missed events (reconnect, overflow).
	ChangeResync ChangeKind = "RESYNC"
)

// EventMask selects which change kinds a subscription delivers.
type EventMask uint8

const (
	MaskInsert EventMask = 1 << iota
	MaskUpdate
	MaskDelete

	AllEvents = MaskInsert | MaskUpdate | MaskDelete
)

// Matches reports whether kind passes the mask. Resync always passes.
func (m EventMask) Matches(kind ChangeKind) bool {
	switch kind {
	case ChangeInsert:
		return m&MaskInsert != 0
	case ChangeUpdate:
		return m&MaskUpdate != 0
	case ChangeDelete:
		return m&MaskDelete != 0
	case ChangeResync:
		return true
	}
	return false
}

// ChangeEvent is one notification from the change feed.
type ChangeEvent struct {
	Table string     `json:"table"`
	Kind  ChangeKind `json:"type"`
	ID    string     `json:"id,omitempty"`
}
