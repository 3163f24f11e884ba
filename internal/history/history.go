package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lu-zhengda/whsock/internal/report"
	"github.com/lu-zhengda/whsock/internal/socket"
)

// EventType describes what happened to a socket.
type EventType string

const (
	EventOpen  EventType = "open"
	EventClose EventType = "close"
)

// Event represents a single socket appearing or disappearing between snapshots.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Protocol  string    `json:"protocol"`
	Local     string    `json:"local_address"`
	Remote    string    `json:"remote_address"`
	State     string    `json:"state,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Command   string    `json:"command,omitempty"`
	User      string    `json:"user"`
	Inode     uint64    `json:"inode,omitempty"`
}

// Snapshot represents the sockets that were open at a given point in time.
type Snapshot struct {
	Timestamp time.Time       `json:"timestamp"`
	Entries   []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is a simplified report row for snapshot storage.
type SnapshotEntry struct {
	Protocol string `json:"protocol"`
	Local    string `json:"local_address"`
	Remote   string `json:"remote_address"`
	State    string `json:"state,omitempty"`
	PID      int    `json:"pid,omitempty"`
	Command  string `json:"command,omitempty"`
	User     string `json:"user"`
	Inode    uint64 `json:"inode,omitempty"`
}

// Store manages history persistence, by default at ~/.config/whsock/history.json.
type Store struct {
	path string
}

// Data is the on-disk format for the history file. Snapshots are keyed by protocol.
type Data struct {
	Snapshots map[string]*Snapshot `json:"snapshots,omitempty"`
	Events    []Event              `json:"events"`
}

// NewStore creates a Store with the default path.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &Store{
		path: filepath.Join(home, ".config", "whsock", "history.json"),
	}, nil
}

// NewStoreWithPath creates a Store at the given path.
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the history data from disk. Returns empty data if file doesn't exist.
func (s *Store) Load() (*Data, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Data{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return &data, nil
}

// Save writes the history data to disk, creating parent directories as needed.
func (s *Store) Save(data *Data) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history data: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// SnapshotFromRows converts report rows to a Snapshot.
func SnapshotFromRows(rows []report.Row, ts time.Time) *Snapshot {
	snap := &Snapshot{
		Timestamp: ts,
		Entries:   make([]SnapshotEntry, len(rows)),
	}
	for i, r := range rows {
		snap.Entries[i] = entryFromRow(r)
	}
	return snap
}

func entryFromRow(r report.Row) SnapshotEntry {
	return SnapshotEntry{
		Protocol: string(r.Protocol),
		Local:    r.Local,
		Remote:   r.Remote,
		State:    r.State,
		PID:      r.PID,
		Command:  r.Command,
		User:     r.User,
		Inode:    r.Inode,
	}
}

// socketKey identifies a socket across snapshots. Sockets sharing an
// endpoint pair (SO_REUSEPORT listeners) differ by inode.
func socketKey(e SnapshotEntry) string {
	return fmt.Sprintf("%s %s %s %d", e.Protocol, e.Local, e.Remote, e.Inode)
}

// Diff compares a previous snapshot to the current rows and returns events
// for sockets that opened or closed.
func Diff(prev *Snapshot, current []report.Row, ts time.Time) []Event {
	prevMap := make(map[string]SnapshotEntry)
	if prev != nil {
		for _, e := range prev.Entries {
			prevMap[socketKey(e)] = e
		}
	}

	currMap := make(map[string]SnapshotEntry)
	for _, r := range current {
		e := entryFromRow(r)
		currMap[socketKey(e)] = e
	}

	var events []Event

	for key, e := range currMap {
		if _, existed := prevMap[key]; !existed {
			events = append(events, newEvent(EventOpen, e, ts))
		}
	}

	for key, e := range prevMap {
		if _, exists := currMap[key]; !exists {
			events = append(events, newEvent(EventClose, e, ts))
		}
	}

	// Sort for deterministic output.
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Protocol != b.Protocol {
			return a.Protocol < b.Protocol
		}
		if a.Local != b.Local {
			return a.Local < b.Local
		}
		if a.Remote != b.Remote {
			return a.Remote < b.Remote
		}
		if a.Inode != b.Inode {
			return a.Inode < b.Inode
		}
		return a.Type < b.Type
	})

	return events
}

func newEvent(typ EventType, e SnapshotEntry, ts time.Time) Event {
	return Event{
		Timestamp: ts,
		Type:      typ,
		Protocol:  e.Protocol,
		Local:     e.Local,
		Remote:    e.Remote,
		State:     e.State,
		PID:       e.PID,
		Command:   e.Command,
		User:      e.User,
		Inode:     e.Inode,
	}
}

// Record takes the current report rows for proto, diffs against the stored
// snapshot of that protocol, appends new events, updates the snapshot, and saves.
func (s *Store) Record(proto socket.Protocol, rows []report.Row, ts time.Time) ([]Event, error) {
	data, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	if data.Snapshots == nil {
		data.Snapshots = make(map[string]*Snapshot)
	}
	events := Diff(data.Snapshots[string(proto)], rows, ts)
	data.Events = append(data.Events, events...)
	data.Snapshots[string(proto)] = SnapshotFromRows(rows, ts)

	if err := s.Save(data); err != nil {
		return nil, fmt.Errorf("failed to save history: %w", err)
	}

	return events, nil
}
