package report

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/whsock/internal/process"
	"github.com/lu-zhengda/whsock/internal/socket"
	"github.com/lu-zhengda/whsock/internal/users"
)

// UserLookup resolves numeric owner IDs.
type UserLookup interface {
	Lookup(uid uint32) (users.Owner, error)
}

// Correlator joins socket records with process owners and user names.
type Correlator struct {
	Users      UserLookup
	Unresolved string // printed for owners missing from the user database
	Log        logrus.FieldLogger
}

// Correlate emits one Row per record, in record order. Sockets without a
// known owner keep empty PID and Command fields. A TCP record whose state
// code has no name is left out and returned as an error for that row only.
func (c *Correlator) Correlate(records []socket.Record, owners process.Map) ([]Row, []error) {
	marker := c.Unresolved
	if marker == "" {
		marker = users.DefaultUnresolved
	}

	var (
		rows      = make([]Row, 0, len(records))
		errs      []error
		lookupErr bool
	)
	for _, rec := range records {
		row := Row{
			UID:      rec.UID,
			Protocol: rec.Protocol,
			Local:    rec.Local(),
			Remote:   rec.Remote(),
			Inode:    rec.Inode,
		}

		if rec.Protocol == socket.TCP {
			name, err := rec.State.Name()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", rec, err))
				continue
			}
			row.State = name
		}

		owner, err := c.Users.Lookup(rec.UID)
		if err != nil && !lookupErr {
			lookupErr = true
			c.logger().WithError(err).Warn("user names unavailable")
		}
		row.User = owner.Display(marker)
		row.UserResolved = owner.Resolved

		// Sockets in TIME_WAIT and similar have no inode and no owner.
		if o, ok := owners.Lookup(rec.Inode); ok && rec.Inode != 0 {
			row.PID = o.PID
			row.Command = o.Cmdline
		}

		rows = append(rows, row)
	}
	return rows, errs
}

func (c *Correlator) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}
