// ABOUTME: Timestamp-based playback scheduler
// ABOUTME: Releases decoded buffers shortly before their play time, drops late ones
package player

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
)

// Scheduler manages playback timing. A buffer is released once its play time
// is within lead of now and dropped once it is more than late behind.
type Scheduler struct {
	mu      sync.Mutex
	bufferQ *BufferQueue
	output  chan audio.Buffer
	lead    time.Duration
	late    time.Duration
	now     func() time.Time

	stats SchedulerStats
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Received int64
	Played   int64
	Dropped  int64
}

// NewScheduler creates a playback scheduler
func NewScheduler(lead, late time.Duration) *Scheduler {
	return &Scheduler{
		bufferQ: NewBufferQueue(),
		output:  make(chan audio.Buffer, 10),
		lead:    lead,
		late:    late,
		now:     time.Now,
	}
}

// Schedule adds a buffer with PlayAt set to the queue
func (s *Scheduler) Schedule(buf audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats.Received < 3 {
		log.Debugf("Scheduled buffer #%d: timestamp=%v, delay=%v",
			s.stats.Received, buf.Timestamp, buf.PlayAt.Sub(s.now()))
	}

	s.stats.Received++
	heap.Push(s.bufferQ, buf)
}

// Run releases due buffers until ctx is done
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processQueue(ctx)
		}
	}
}

// processQueue hands every due buffer to the output channel
func (s *Scheduler) processQueue(ctx context.Context) {
	for {
		buf, ok := s.next()
		if !ok {
			return
		}

		select {
		case s.output <- buf:
			s.mu.Lock()
			s.stats.Played++
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// next pops the first due buffer, dropping late ones on the way
func (s *Scheduler) next() (audio.Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for s.bufferQ.Len() > 0 {
		buf := s.bufferQ.Peek()
		delay := buf.PlayAt.Sub(now)

		switch {
		case delay > s.lead:
			return audio.Buffer{}, false
		case delay < -s.late:
			heap.Pop(s.bufferQ)
			s.stats.Dropped++
			log.Debugf("Dropped late buffer: %v late", -delay)
		default:
			return heap.Pop(s.bufferQ).(audio.Buffer), true
		}
	}
	return audio.Buffer{}, false
}

// Output returns the output channel
func (s *Scheduler) Output() <-chan audio.Buffer {
	return s.output
}

// Len returns the number of buffers waiting
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferQ.Len()
}

// Clear drops every waiting buffer
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufferQ.items = nil

	for {
		select {
		case <-s.output:
		default:
			return
		}
	}
}

// Retime recomputes the play time of every waiting buffer
func (s *Scheduler) Retime(playAt func(audio.Buffer) time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bufferQ.items {
		s.bufferQ.items[i].PlayAt = playAt(s.bufferQ.items[i])
	}
	heap.Init(s.bufferQ)
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// BufferQueue is a priority queue for audio buffers
type BufferQueue struct {
	items []audio.Buffer
}

func NewBufferQueue() *BufferQueue {
	q := &BufferQueue{}
	heap.Init(q)
	return q
}

// Implement heap.Interface
func (q *BufferQueue) Len() int { return len(q.items) }

func (q *BufferQueue) Less(i, j int) bool {
	return q.items[i].PlayAt.Before(q.items[j].PlayAt)
}

func (q *BufferQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *BufferQueue) Push(x interface{}) {
	q.items = append(q.items, x.(audio.Buffer))
}

func (q *BufferQueue) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

func (q *BufferQueue) Peek() audio.Buffer {
	return q.items[0]
}
