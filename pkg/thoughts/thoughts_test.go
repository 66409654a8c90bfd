package thoughts

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAndSnapshot(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)

	l.Log("agent-1", "planner", Planning, "thinking about angles", map[string]any{"round": 1})
	l.LogConfidence("agent-2", "researcher", Searching, "running query", nil, 0.7)
	l.Stop()

	got := l.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "agent-1", got[0].AgentID)
	assert.Equal(t, Planning, got[0].Type)
	assert.InDelta(t, 0.7, got[1].Confidence, 0.001)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSubscribe(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)

	var mu sync.Mutex
	var received []Thought
	unsub := l.Subscribe(func(th Thought) {
		mu.Lock()
		received = append(received, th)
		mu.Unlock()
	})

	l.Log("a", "t", Info, "first", nil)
	l.Stop()

	mu.Lock()
	require.Len(t, received, 1)
	assert.Equal(t, "first", received[0].Content)
	mu.Unlock()

	unsub()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)

	var count int
	var mu sync.Mutex
	unsub := l.Subscribe(func(Thought) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()

	l.Log("a", "t", Info, "after unsubscribe", nil)
	l.Stop()

	mu.Lock()
	assert.Zero(t, count)
	mu.Unlock()
}

func TestStopDrainsPending(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		l.Log("a", "t", Info, "burst", nil)
	}
	l.Stop()

	assert.Len(t, l.Snapshot(), 100)
}

func TestJSONLFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	l.Log("a", "planner", Deciding, "chose three angles", map[string]any{"n": 3})
	l.Stop()

	entries, err := filepath.Glob(filepath.Join(dir, "thoughts_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(entries[0])
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var th Thought
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &th))
	assert.Equal(t, Deciding, th.Type)
	assert.Equal(t, "chose three angles", th.Content)
}

func TestSummary(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)

	l.Log("a", "planner", Planning, "x", nil)
	l.Log("a", "planner", Planning, "y", nil)
	l.Log("b", "researcher", Searching, "z", nil)
	l.Stop()

	s := l.Summary()
	assert.Equal(t, 2, s["by_type"]["planning"])
	assert.Equal(t, 1, s["by_type"]["searching"])
	assert.Equal(t, 2, s["by_agent"]["a"])
	assert.Equal(t, 1, s["by_agent"]["b"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Log("a", "t", Info, "ignored", nil)
	l.Stop()
	assert.Nil(t, l.Snapshot())
	unsub := l.Subscribe(func(Thought) {})
	unsub()
}

func TestLogAfterStopDoesNotBlock(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)
	l.Stop()

	done := make(chan struct{})
	go func() {
		l.Log("a", "t", Info, "late", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log blocked after Stop")
	}
}
