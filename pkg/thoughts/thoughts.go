// Package thoughts records agent reasoning as a stream of typed events.
// Agents emit into a buffered channel; a single consumer goroutine appends
// to an in-memory log, writes JSONL to disk, and fans out to subscribers,
// so worker goroutines never touch the subscriber list directly.
package thoughts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Type classifies a thought.
type Type string

const (
	Planning     Type = "planning"
	Searching    Type = "searching"
	Analyzing    Type = "analyzing"
	Synthesizing Type = "synthesizing"
	Evaluating   Type = "evaluating"
	Deciding     Type = "deciding"
	Error        Type = "error"
	Info         Type = "info"
)

// Thought is one logged reasoning step.
type Thought struct {
	Timestamp  time.Time      `json:"timestamp"`
	AgentID    string         `json:"agent_id"`
	AgentType  string         `json:"agent_type"`
	Type       Type           `json:"thought_type"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// Logger collects thoughts from concurrent agents.
type Logger struct {
	ch      chan Thought
	done    chan struct{}
	stopped chan struct{}

	mu       sync.Mutex
	thoughts []Thought
	subs     map[int]func(Thought)
	nextSub  int

	file *os.File
}

// New starts a logger. If dir is non-empty, thoughts are also appended to
// a session JSONL file under it.
func New(dir string) (*Logger, error) {
	l := &Logger{
		ch:      make(chan Thought, 256),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		subs:    make(map[int]func(Thought)),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create thought log dir: %w", err)
		}
		name := fmt.Sprintf("thoughts_%s.jsonl", time.Now().Format("20060102_150405"))
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open thought log: %w", err)
		}
		l.file = f
	}

	go l.consume()
	return l, nil
}

// Log enqueues a thought. Safe to call from any goroutine and on a nil
// logger, so agents don't need to guard every call site.
func (l *Logger) Log(agentID, agentType string, t Type, content string, metadata map[string]any) {
	l.LogConfidence(agentID, agentType, t, content, metadata, 0)
}

// LogConfidence is Log with an explicit confidence value.
func (l *Logger) LogConfidence(agentID, agentType string, t Type, content string, metadata map[string]any, confidence float64) {
	if l == nil {
		return
	}
	th := Thought{
		Timestamp:  time.Now(),
		AgentID:    agentID,
		AgentType:  agentType,
		Type:       t,
		Content:    content,
		Metadata:   metadata,
		Confidence: confidence,
	}
	select {
	case l.ch <- th:
	case <-l.done:
	}
}

func (l *Logger) consume() {
	defer close(l.stopped)
	for {
		select {
		case th := <-l.ch:
			l.deliver(th)
		case <-l.done:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case th := <-l.ch:
					l.deliver(th)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) deliver(th Thought) {
	l.mu.Lock()
	l.thoughts = append(l.thoughts, th)
	subs := make([]func(Thought), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	if l.file != nil {
		if data, err := json.Marshal(th); err == nil {
			l.file.Write(append(data, '\n'))
		}
	}

	for _, fn := range subs {
		fn(th)
	}
}

// Subscribe registers a callback invoked for every subsequent thought from
// the consumer goroutine. The returned function removes the subscription.
func (l *Logger) Subscribe(fn func(Thought)) func() {
	if l == nil {
		return func() {}
	}
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Snapshot returns a copy of all thoughts logged so far.
func (l *Logger) Snapshot() []Thought {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Thought, len(l.thoughts))
	copy(out, l.thoughts)
	return out
}

// Summary counts thoughts by type and agent.
func (l *Logger) Summary() map[string]map[string]int {
	summary := map[string]map[string]int{
		"by_type":  {},
		"by_agent": {},
	}
	for _, th := range l.Snapshot() {
		summary["by_type"][string(th.Type)]++
		summary["by_agent"][th.AgentID]++
	}
	return summary
}

// Stop shuts down the consumer and closes the log file. Pending thoughts
// are delivered before Stop returns.
func (l *Logger) Stop() {
	if l == nil {
		return
	}
	close(l.done)
	<-l.stopped
	if l.file != nil {
		l.file.Close()
	}
}
