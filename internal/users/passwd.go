// Package users maps numeric owner IDs to login names using a passwd file.
package users

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPasswdPath is the system user database.
const DefaultPasswdPath = "/etc/passwd"

// DefaultUnresolved is printed for owners missing from the user database.
const DefaultUnresolved = "(unknown)"

// Owner is the result of a lookup.
type Owner struct {
	UID      uint32
	Name     string
	Resolved bool
}

// Display returns the user name, or marker when the UID has no entry.
func (o Owner) Display(marker string) string {
	if !o.Resolved {
		return marker
	}
	return o.Name
}

// Resolver looks up names in a passwd formatted file. Every lookup rescans
// the file so that edits made while a report runs are picked up.
type Resolver struct {
	path string
}

// NewResolver creates a Resolver reading the passwd file at path.
func NewResolver(path string) *Resolver {
	if path == "" {
		path = DefaultPasswdPath
	}
	return &Resolver{path: path}
}

// Lookup returns the first entry whose UID field matches uid. A missing
// entry is not an error: the returned Owner simply has Resolved unset.
func (r *Resolver) Lookup(uid uint32) (Owner, error) {
	owner := Owner{UID: uid}

	f, err := os.Open(r.path)
	if err != nil {
		return owner, fmt.Errorf("failed to open user database: %w", err)
	}
	defer f.Close()

	want := strconv.FormatUint(uint64(uid), 10)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// name:password:UID:GID:GECOS:directory:shell
		fields := strings.SplitN(line, ":", 4)
		if len(fields) < 3 {
			continue
		}
		if fields[2] == want {
			owner.Name = fields[0]
			owner.Resolved = true
			return owner, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return owner, fmt.Errorf("failed to read user database: %w", err)
	}
	return owner, nil
}
