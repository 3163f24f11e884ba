package report

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/whsock/internal/process"
	"github.com/lu-zhengda/whsock/internal/socket"
	"github.com/lu-zhengda/whsock/internal/users"
)

// mapUsers is an in-memory UserLookup.
type mapUsers struct {
	names map[uint32]string
	err   error
	calls int
}

func (m *mapUsers) Lookup(uid uint32) (users.Owner, error) {
	m.calls++
	if m.err != nil {
		return users.Owner{UID: uid}, m.err
	}
	name, ok := m.names[uid]
	return users.Owner{UID: uid, Name: name, Resolved: ok}, nil
}

func record(proto socket.Protocol, local string, lport uint16, remote string, rport uint16, st socket.State, uid uint32, inode uint64) socket.Record {
	return socket.Record{
		Protocol:   proto,
		LocalAddr:  netip.MustParseAddr(local),
		LocalPort:  lport,
		RemoteAddr: netip.MustParseAddr(remote),
		RemotePort: rport,
		State:      st,
		UID:        uid,
		Inode:      inode,
	}
}

func TestCorrelate(t *testing.T) {
	lookup := &mapUsers{names: map[uint32]string{0: "root", 1000: "zhengda"}}
	c := &Correlator{Users: lookup}

	records := []socket.Record{
		record(socket.TCP, "127.0.0.1", 80, "0.0.0.0", 0, socket.StateListen, 0, 111),
		record(socket.TCP, "10.0.2.15", 50000, "93.184.216.34", 443, socket.StateEstablished, 1000, 222),
		record(socket.TCP, "127.0.0.1", 631, "127.0.0.1", 41394, socket.StateTimeWait, 0, 0),
	}
	owners := process.Map{
		111: {Inode: 111, PID: 42, Cmdline: "nginx -g daemon off;"},
		0:   {Inode: 0, PID: 1, Cmdline: "bogus"},
	}

	rows, errs := c.Correlate(records, owners)
	require.Empty(t, errs)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"root", "tcp", "127.0.0.1:80", "0.0.0.0:0", "LISTEN", "42", "nginx -g daemon off;"}, rows[0].Fields())
	assert.Equal(t, []string{"zhengda", "tcp", "10.0.2.15:50000", "93.184.216.34:443", "ESTABLISHED", "", ""}, rows[1].Fields())
	assert.False(t, rows[1].HasOwner())

	// Inode 0 never correlates.
	assert.Equal(t, "TIME_WAIT", rows[2].State)
	assert.False(t, rows[2].HasOwner())
}

func TestCorrelate_UDPHasNoState(t *testing.T) {
	c := &Correlator{Users: &mapUsers{names: map[uint32]string{0: "root"}}}

	// A UDP record's state code is never resolved, even if out of range.
	rows, errs := c.Correlate([]socket.Record{
		record(socket.UDP, "0.0.0.0", 68, "0.0.0.0", 0, socket.State(0x07), 0, 5),
		record(socket.UDP, "0.0.0.0", 69, "0.0.0.0", 0, socket.State(0xEE), 0, 6),
	}, process.Map{})
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].State)
	assert.Equal(t, "", rows[1].State)
}

func TestCorrelate_UnknownStateIsRowScoped(t *testing.T) {
	c := &Correlator{Users: &mapUsers{}}

	rows, errs := c.Correlate([]socket.Record{
		record(socket.TCP, "0.0.0.0", 22, "0.0.0.0", 0, socket.StateListen, 0, 1),
		record(socket.TCP, "0.0.0.0", 23, "0.0.0.0", 0, socket.State(0x0D), 0, 2),
		record(socket.TCP, "0.0.0.0", 24, "0.0.0.0", 0, socket.StateListen, 0, 3),
	}, nil)

	require.Len(t, rows, 2)
	assert.Equal(t, "0.0.0.0:22", rows[0].Local)
	assert.Equal(t, "0.0.0.0:24", rows[1].Local)

	require.Len(t, errs, 1)
	var stateErr *socket.UnknownStateError
	require.ErrorAs(t, errs[0], &stateErr)
	assert.Equal(t, uint8(0x0D), stateErr.Code)
}

func TestCorrelate_UnresolvedUser(t *testing.T) {
	c := &Correlator{Users: &mapUsers{names: map[uint32]string{}}, Unresolved: "?"}

	rows, _ := c.Correlate([]socket.Record{
		record(socket.UDP, "0.0.0.0", 68, "0.0.0.0", 0, 0, 4242, 5),
	}, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "?", rows[0].User)
	assert.False(t, rows[0].UserResolved)
	assert.Equal(t, uint32(4242), rows[0].UID)
}

func TestCorrelate_UserDatabaseErrorKeepsRows(t *testing.T) {
	lookup := &mapUsers{err: errors.New("permission denied")}
	c := &Correlator{Users: lookup}

	rows, errs := c.Correlate([]socket.Record{
		record(socket.UDP, "0.0.0.0", 68, "0.0.0.0", 0, 0, 0, 5),
		record(socket.UDP, "0.0.0.0", 69, "0.0.0.0", 0, 0, 0, 6),
	}, nil)
	assert.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, users.DefaultUnresolved, rows[0].User)
	assert.Equal(t, 2, lookup.calls, "every row is looked up afresh")
}

func TestCorrelate_DuplicateRowsKept(t *testing.T) {
	c := &Correlator{Users: &mapUsers{}}
	rec := record(socket.TCP, "0.0.0.0", 80, "0.0.0.0", 0, socket.StateListen, 0, 9)

	rows, _ := c.Correlate([]socket.Record{rec, rec}, nil)
	assert.Len(t, rows, 2)
	assert.Equal(t, rows[0], rows[1])
}
