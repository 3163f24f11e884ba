package socket

import (
	"fmt"
	"os"
	"path/filepath"
)

// Table is the parsed content of one protocol's socket table.
type Table struct {
	Protocol  Protocol
	Path      string
	Records   []Record
	RowErrors []error
}

// Reader reads kernel socket tables from the filesystem.
type Reader struct {
	paths map[Protocol]string
}

// DefaultPaths returns the standard table locations below a proc mount.
func DefaultPaths(procRoot string) map[Protocol]string {
	paths := make(map[Protocol]string, len(Protocols))
	for _, p := range Protocols {
		paths[p] = filepath.Join(procRoot, "net", string(p))
	}
	return paths
}

// NewReader creates a Reader for the given per-protocol table paths.
func NewReader(paths map[Protocol]string) *Reader {
	cp := make(map[Protocol]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return &Reader{paths: cp}
}

// Read opens and parses the socket table for proto. A table that cannot be
// opened yields a *TableUnreadableError.
func (r *Reader) Read(proto Protocol) (*Table, error) {
	path, ok := r.paths[proto]
	if !ok {
		return nil, &TableUnreadableError{Protocol: proto, Err: fmt.Errorf("no table configured")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &TableUnreadableError{Protocol: proto, Path: path, Err: err}
	}
	defer f.Close()

	records, rowErrs, err := ParseTable(proto, f)
	if err != nil {
		return nil, &TableUnreadableError{Protocol: proto, Path: path, Err: err}
	}

	return &Table{
		Protocol:  proto,
		Path:      path,
		Records:   records,
		RowErrors: rowErrs,
	}, nil
}
