package socket

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"
)

// Column positions in /proc/net/{tcp,udp}:
//
//	sl local_address rem_address st tx_queue:rx_queue tr:tm->when retrnsmt uid timeout inode ...
const (
	colLocal  = 1
	colRemote = 2
	colState  = 3
	colUID    = 7
	colInode  = 9

	minColumns = colInode + 1
)

// ParseTable parses a whole socket table. The first line is a header and is
// discarded. Rows that do not match the column layout are returned as
// *RowError values and do not stop the parse; the final error is reserved
// for I/O failures.
func ParseTable(proto Protocol, r io.Reader) ([]Record, []error, error) {
	var (
		records []Record
		rowErrs []error
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		rec, err := ParseRow(proto, text)
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Protocol: proto, Line: line, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, rowErrs, fmt.Errorf("failed to read %s table: %w", proto, err)
	}
	return records, rowErrs, nil
}

// ParseRow parses a single data line of a socket table.
func ParseRow(proto Protocol, line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) < minColumns {
		return Record{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(fields))
	}

	rec := Record{Protocol: proto}
	var err error

	rec.LocalAddr, rec.LocalPort, err = parseEndpoint(fields[colLocal])
	if err != nil {
		return Record{}, fmt.Errorf("local address: %w", err)
	}
	rec.RemoteAddr, rec.RemotePort, err = parseEndpoint(fields[colRemote])
	if err != nil {
		return Record{}, fmt.Errorf("remote address: %w", err)
	}

	// The udp table carries a state column too, but it is not a TCP state.
	if proto == TCP {
		rec.State, err = DecodeState(fields[colState])
		if err != nil {
			return Record{}, err
		}
	}

	uid, err := strconv.ParseUint(fields[colUID], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid uid %q: %w", fields[colUID], err)
	}
	rec.UID = uint32(uid)

	rec.Inode, err = strconv.ParseUint(fields[colInode], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid inode %q: %w", fields[colInode], err)
	}

	return rec, nil
}

// parseEndpoint splits "0100007F:0050" into address and port.
func parseEndpoint(raw string) (addr netip.Addr, port uint16, err error) {
	host, portHex, ok := strings.Cut(raw, ":")
	if !ok {
		return addr, 0, fmt.Errorf("missing port separator in %q", raw)
	}
	if addr, err = DecodeIPv4(host); err != nil {
		return addr, 0, err
	}
	if port, err = DecodePort(portHex); err != nil {
		return addr, 0, err
	}
	return addr, port, nil
}
