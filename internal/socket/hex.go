package socket

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
)

// DecodeIPv4 decodes the 8 hex digit address used by /proc/net/{tcp,udp}.
// The kernel prints the 32-bit address in host (little-endian) byte order,
// so "0100007F" is 127.0.0.1.
func DecodeIPv4(s string) (netip.Addr, error) {
	if len(s) != 8 {
		return netip.Addr{}, &MalformedHexError{Field: "address", Value: s}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return netip.Addr{}, &MalformedHexError{Field: "address", Value: s}
	}
	return netip.AddrFrom4([4]byte{b[3], b[2], b[1], b[0]}), nil
}

// EncodeIPv4 is the inverse of DecodeIPv4.
func EncodeIPv4(addr netip.Addr) (string, error) {
	if !addr.Is4() {
		return "", fmt.Errorf("not an IPv4 address: %s", addr)
	}
	b := addr.As4()
	return fmt.Sprintf("%02X%02X%02X%02X", b[3], b[2], b[1], b[0]), nil
}

// DecodePort decodes a port. Unlike addresses, ports are printed big-endian.
func DecodePort(s string) (uint16, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, &MalformedHexError{Field: "port", Value: s}
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, &MalformedHexError{Field: "port", Value: s}
	}
	return uint16(v), nil
}

// DecodeState decodes the "st" column of the tcp table.
func DecodeState(s string) (State, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, &MalformedHexError{Field: "state", Value: s}
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, &MalformedHexError{Field: "state", Value: s}
	}
	return State(v), nil
}
