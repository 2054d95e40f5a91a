// Package samplelog keeps a bounded, time-windowed history of readings for
// graphs and summaries.
package samplelog

import (
	"math"
	"sync"
	"time"

	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/sensor"
)

// Log is a circular buffer of readings bounded by count and by age. Only
// Append evicts; a log that receives no appends keeps its contents.
//
// Log is safe for one writer and any number of concurrent readers.
type Log struct {
	mu     sync.RWMutex
	buf    []sensor.Reading
	head   int // index of the oldest reading
	count  int
	maxAge int64 // milliseconds
	clock  clock.Clock
}

// New creates a log holding at most maxPoints readings no older than maxAge.
func New(maxPoints int, maxAge time.Duration, c clock.Clock) *Log {
	if maxPoints < 1 {
		maxPoints = 1
	}
	return &Log{
		buf:    make([]sensor.Reading, maxPoints),
		maxAge: maxAge.Milliseconds(),
		clock:  c,
	}
}

// Append adds r at the end, then drops readings older than the age bound. When
// the log is full the oldest reading is overwritten.
func (l *Log) Append(r sensor.Reading) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == len(l.buf) {
		l.buf[l.head] = r
		l.head = (l.head + 1) % len(l.buf)
	} else {
		l.buf[(l.head+l.count)%len(l.buf)] = r
		l.count++
	}

	now := l.clock.NowMillis()
	for l.count > 0 && now-l.buf[l.head].Timestamp > l.maxAge {
		l.buf[l.head] = sensor.Reading{}
		l.head = (l.head + 1) % len(l.buf)
		l.count--
	}
}

// All returns a copy of every reading, oldest first.
func (l *Log) All() []sensor.Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.since(math.MinInt64)
}

// Recent returns a copy of the readings with timestamp >= now - d, oldest
// first.
func (l *Log) Recent(d time.Duration) []sensor.Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.since(l.clock.NowMillis() - d.Milliseconds())
}

// since must be called with the lock held.
func (l *Log) since(cutoff int64) []sensor.Reading {
	result := make([]sensor.Reading, 0, l.count)
	for i := 0; i < l.count; i++ {
		r := l.buf[(l.head+i)%len(l.buf)]
		if r.Timestamp >= cutoff {
			result = append(result, r)
		}
	}
	return result
}

// Last returns the most recently appended reading.
func (l *Log) Last() (sensor.Reading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.count == 0 {
		return sensor.Reading{}, false
	}
	return l.buf[(l.head+l.count-1)%len(l.buf)], true
}

// Count returns the number of stored readings.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Capacity returns the count bound.
func (l *Log) Capacity() int {
	return len(l.buf)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.head = 0
	l.count = 0
}
