package report

import (
	"strconv"

	"github.com/lu-zhengda/whsock/internal/socket"
)

// Header names the report columns, in output order.
var Header = []string{"User", "Proto", "Local Address", "Remote Address", "State", "PID", "Command"}

// Row is one line of the report.
type Row struct {
	User         string          `json:"user"`
	UID          uint32          `json:"uid"`
	UserResolved bool            `json:"user_resolved"`
	Protocol     socket.Protocol `json:"protocol"`
	Local        string          `json:"local_address"`
	Remote       string          `json:"remote_address"`
	State        string          `json:"state"`
	PID          int             `json:"pid,omitempty"`
	Command      string          `json:"command"`
	Inode        uint64          `json:"inode"`
}

// HasOwner reports whether a process holding the socket was found.
func (r Row) HasOwner() bool {
	return r.PID > 0
}

// Fields returns the row's values in Header order. PID and Command are
// empty when no owning process was found.
func (r Row) Fields() []string {
	pid := ""
	if r.HasOwner() {
		pid = strconv.Itoa(r.PID)
	}
	return []string{
		r.User,
		string(r.Protocol),
		r.Local,
		r.Remote,
		r.State,
		pid,
		r.Command,
	}
}
