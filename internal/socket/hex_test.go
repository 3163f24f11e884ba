package socket

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIPv4(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0100007F", "127.0.0.1"},
		{"00000000", "0.0.0.0"},
		{"0F02000A", "10.0.2.15"},
		{"22D8B85D", "93.184.216.34"},
		{"22d8b85d", "93.184.216.34"},
		{"FFFFFFFF", "255.255.255.255"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			addr, err := DecodeIPv4(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr.String())
		})
	}
}

func TestDecodeIPv4_Malformed(t *testing.T) {
	for _, input := range []string{"", "0100007", "0100007F0", "0100007G", "0x00007F", "0100007F:0050"} {
		_, err := DecodeIPv4(input)
		var hexErr *MalformedHexError
		require.Truef(t, errors.As(err, &hexErr), "input %q: expected MalformedHexError, got %v", input, err)
		assert.Equal(t, "address", hexErr.Field)
		assert.Equal(t, input, hexErr.Value)
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	addrs := []string{"127.0.0.1", "0.0.0.0", "192.168.1.10", "10.255.0.1", "1.2.3.4", "255.255.255.255"}
	for _, s := range addrs {
		want := netip.MustParseAddr(s)

		encoded, err := EncodeIPv4(want)
		require.NoError(t, err)
		got, err := DecodeIPv4(encoded)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// And the other way around, starting from the hex form.
		again, err := EncodeIPv4(got)
		require.NoError(t, err)
		assert.Equal(t, encoded, again)
	}

	_, err := EncodeIPv4(netip.MustParseAddr("::1"))
	assert.Error(t, err)
}

func TestDecodePort(t *testing.T) {
	tests := []struct {
		input string
		want  uint16
	}{
		{"1F90", 8080},
		{"0050", 80},
		{"50", 80},
		{"0000", 0},
		{"FFFF", 65535},
		{"c350", 50000},
	}

	for _, tt := range tests {
		got, err := DecodePort(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestDecodePort_Malformed(t *testing.T) {
	for _, input := range []string{"", "10000", "ZZ", "-1", "+50", "0x50"} {
		_, err := DecodePort(input)
		var hexErr *MalformedHexError
		require.Truef(t, errors.As(err, &hexErr), "input %q", input)
		assert.Equal(t, "port", hexErr.Field)
	}
}

func TestDecodeState(t *testing.T) {
	st, err := DecodeState("0A")
	require.NoError(t, err)
	assert.Equal(t, StateListen, st)

	st, err = DecodeState("06")
	require.NoError(t, err)
	assert.Equal(t, StateTimeWait, st)

	_, err = DecodeState("XY")
	var hexErr *MalformedHexError
	require.ErrorAs(t, err, &hexErr)
	assert.Equal(t, "state", hexErr.Field)

	_, err = DecodeState("100")
	require.ErrorAs(t, err, &hexErr)
}
