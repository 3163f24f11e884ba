package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/whsock/internal/history"
)

func TestPrintHistoryHuman_CleansControlCharacters(t *testing.T) {
	ts := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	events := []history.Event{{
		Timestamp: ts,
		Type:      history.EventOpen,
		Protocol:  "tcp",
		Local:     "0.0.0.0:80",
		Remote:    "0.0.0.0:0",
		PID:       42,
		Command:   "evil\tcmd\nline2",
		User:      "ro\tot",
	}}

	var buf bytes.Buffer
	require.NoError(t, printHistoryHuman(&buf, events, ts.Add(time.Hour)))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "evil cmd line2")
	assert.Contains(t, lines[1], "ro ot")
	assert.Contains(t, lines[1], "1 hour ago")
}

func TestHistory_DebugLogNamesStore(t *testing.T) {
	e := newEnv(t, tcpTable)

	_, stderr, err := e.run("history", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, filepath.Join(e.dir, "history.json"))
}
