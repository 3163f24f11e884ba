package socket

import "fmt"

// MalformedHexError reports a hex field of a socket table that cannot be decoded.
type MalformedHexError struct {
	Field string // "address", "port" or "state"
	Value string
}

func (e *MalformedHexError) Error() string {
	return fmt.Sprintf("malformed hex %s %q", e.Field, e.Value)
}

// UnknownStateError reports a TCP state code outside the known enumeration.
// It usually means the kernel gained a state this table does not list yet.
type UnknownStateError struct {
	Code uint8
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown tcp state code 0x%02X", e.Code)
}

// TableUnreadableError is returned when a protocol's socket table cannot be opened.
type TableUnreadableError struct {
	Protocol Protocol
	Path     string
	Err      error
}

func (e *TableUnreadableError) Error() string {
	return fmt.Sprintf("failed to open %s socket table %s: %v", e.Protocol, e.Path, e.Err)
}

func (e *TableUnreadableError) Unwrap() error {
	return e.Err
}

// RowError ties a parse failure to its 1-based line in the socket table.
type RowError struct {
	Protocol Protocol
	Line     int
	Err      error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s table line %d: %v", e.Protocol, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
