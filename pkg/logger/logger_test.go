package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		entries = append(entries, e)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo}).With(Component("inventory"))
	log.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	log.Debug("hidden")
	log.Info("item sold", ItemID("A-1"), Count(2), Seed(42))
	log.Error("save failed", Path("/tmp/store.txt"), Err(errors.New("disk full")))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "2026-03-01T12:00:00Z", entries[0]["time"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "item sold", entries[0]["msg"])
	assert.Equal(t, "inventory", entries[0]["component"])
	assert.Equal(t, "A-1", entries[0]["item_id"])
	assert.Equal(t, float64(42), entries[0]["seed"])

	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "disk full", entries[1]["error"])
	assert.NotContains(t, entries[1], "caller")
}

func TestLogger_NilErrAndReservedKeys(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, Level: LevelDebug}).Warn("cache skipped", Err(nil), String("msg", "spoofed"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache skipped", entries[0]["msg"])
	assert.NotContains(t, entries[0], "error")
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Options{Output: &buf, Level: LevelDebug}).With(Component("a"))
	child := parent.With(Component("b"), Digest("ff"))

	parent.Info("from parent")
	child.Info("from child")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0]["component"])
	assert.NotContains(t, entries[0], "digest")
	assert.Equal(t, "b", entries[1]["component"], "later fields win")
	assert.Equal(t, "ff", entries[1]["digest"])
}

func TestLogger_ChildrenShareOutput(t *testing.T) {
	var buf bytes.Buffer
	root := New(Options{Output: &buf, Level: LevelInfo})
	inv := root.With(Component("inventory"))
	gb := root.With(Component("gradebook"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); inv.Info("tick") }()
		go func() { defer wg.Done(); gb.Info("tick") }()
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 100)
}

func TestLogger_Caller(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, AddCaller: true}).Warn("careful")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	caller, _ := entries[0]["caller"].(string)
	assert.True(t, strings.HasPrefix(caller, "logger_test.go:"), caller)
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.False(t, log.Enabled(LevelError))
	log.Error("nothing")
}
