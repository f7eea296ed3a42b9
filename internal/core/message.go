package core

// RelayMessage is the unit fanned out to connections.
type RelayMessage struct {
	SessionID int64
	// UserID, when set, restricts delivery to that user's connections.
	UserID  *int64
	Payload string
}

// Matches reports whether e is a recipient of m. A set UserID is an
// inclusion filter, not a sender exclusion.
func (m RelayMessage) Matches(e Entry) bool {
	if e.SessionID != m.SessionID {
		return false
	}
	return m.UserID == nil || e.UserID == *m.UserID
}
