package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateName(t *testing.T) {
	want := map[string]string{
		"01": "ESTABLISHED",
		"02": "SYN_SENT",
		"03": "SYN_RECV",
		"04": "FIN_WAIT1",
		"05": "FIN_WAIT2",
		"06": "TIME_WAIT",
		"07": "CLOSE",
		"08": "CLOSE_WAIT",
		"09": "LAST_ACK",
		"0A": "LISTEN",
		"0B": "CLOSING",
		"0C": "NEW_SYN_RECV",
	}

	for code, name := range want {
		st, err := DecodeState(code)
		require.NoError(t, err)

		got, err := st.Name()
		require.NoError(t, err, code)
		assert.Equal(t, name, got, code)
		assert.Equal(t, name, st.String())
	}
}

func TestStateName_Unknown(t *testing.T) {
	for _, code := range []State{0, 13, 0xFF} {
		_, err := code.Name()

		var stateErr *UnknownStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, uint8(code), stateErr.Code)
	}

	assert.Equal(t, "UNKNOWN(0D)", State(13).String())
}
