package visa

// Session is an open command/response channel to one instrument.
// A session has a single owner, is not safe for concurrent use, and
// is never reused once closed.
type Session interface {
	// Write sends a command without waiting for a response.
	Write(cmd string) error
	// Query sends a command and reads one terminated response line.
	Query(cmd string) (string, error)
	// Close releases the underlying channel. Closing twice is a no-op;
	// any other call on a closed session fails.
	Close() error
}
