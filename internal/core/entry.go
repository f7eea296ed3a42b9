package core

// Sender pushes a payload onto a connection's outbound path without blocking.
// It reports false when the payload was dropped.
type Sender interface {
	Send(payload string) bool
}

// Entry is a registered client as seen by the core layer. Outbound is nil
// until the physical connection is attached.
type Entry struct {
	ID        string
	UserID    int64
	SessionID int64
	Outbound  Sender
}

// Attached reports whether a live connection is bound to the entry.
func (e Entry) Attached() bool {
	return e.Outbound != nil
}
