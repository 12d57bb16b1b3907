package logger

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const defaultTailSize = 200

// TailEntry is one captured log record, suitable for JSON rendering on the
// diagnostics logs endpoint.
type TailEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Module  string         `json:"module,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// tailBuffer retains the most recent N log entries in a fixed-size ring.
type tailBuffer struct {
	mu      sync.Mutex
	entries []TailEntry
	next    int
	filled  bool
}

func newTailBuffer(size int) *tailBuffer {
	if size <= 0 {
		size = defaultTailSize
	}
	return &tailBuffer{entries: make([]TailEntry, size)}
}

func (b *tailBuffer) add(entry TailEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next++
	if b.next == len(b.entries) {
		b.next = 0
		b.filled = true
	}
}

// snapshot returns up to limit entries, newest first.
func (b *tailBuffer) snapshot(limit int) []TailEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	if b.filled {
		size = len(b.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]TailEntry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := b.next - 1 - i
		if idx < 0 {
			idx += len(b.entries)
		}
		out = append(out, b.entries[idx])
	}
	return out
}

func (b *tailBuffer) core() zapcore.Core {
	return &tailCore{buffer: b}
}

// tailCore is a zapcore.Core that copies entries into the ring buffer. It
// never fails and never blocks on I/O.
type tailCore struct {
	buffer *tailBuffer
	fields []zapcore.Field
}

func (c *tailCore) Enabled(zapcore.Level) bool { return true }

func (c *tailCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &tailCore{buffer: c.buffer, fields: merged}
}

func (c *tailCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, c)
}

func (c *tailCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	module, _ := enc.Fields["module"].(string)
	delete(enc.Fields, "module")

	captured := TailEntry{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Module:  module,
		Message: entry.Message,
	}
	if len(enc.Fields) > 0 {
		captured.Fields = enc.Fields
	}

	c.buffer.add(captured)
	return nil
}

func (c *tailCore) Sync() error { return nil }
