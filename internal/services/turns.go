package services

import (
	"container/heap"
	"sync"
	"time"

	"hangman_bot/internal/models"
)

type turnWatch struct {
	gameID    int64
	channelID int64
	seq       int64
	deadline  time.Time
}

type watchHeap []turnWatch

func (h watchHeap) Len() int           { return len(h) }
func (h watchHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h watchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *watchHeap) Push(x any)        { *h = append(*h, x.(turnWatch)) }
func (h *watchHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	*h = old[:n-1]
	return w
}

// turnQueue tracks the pending deadline of every started game, earliest first.
// A game has one current watch; entries left behind by later turn changes
// are dropped when they reach the top of the heap.
type turnQueue struct {
	mu      sync.Mutex
	heap    watchHeap
	current map[int64]int64
}

func newTurnQueue() *turnQueue {
	return &turnQueue{current: make(map[int64]int64)}
}

func (q *turnQueue) watch(g *models.Game) {
	if g.Deadline == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.current[g.ID] = g.TurnSeq
	heap.Push(&q.heap, turnWatch{
		gameID:    g.ID,
		channelID: g.ChannelID,
		seq:       g.TurnSeq,
		deadline:  *g.Deadline,
	})
}

// retry puts a popped watch back if it is still the game's current one.
func (q *turnQueue) retry(w turnWatch) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if seq, ok := q.current[w.gameID]; ok && seq == w.seq {
		heap.Push(&q.heap, w)
	}
}

func (q *turnQueue) unwatch(gameID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.current, gameID)
}

func (q *turnQueue) watching(gameID, seq int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur, ok := q.current[gameID]
	return ok && cur == seq
}

// due pops every current watch whose deadline is not after now.
func (q *turnQueue) due(now time.Time) []turnWatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []turnWatch
	for q.heap.Len() > 0 && !q.heap[0].deadline.After(now) {
		w := heap.Pop(&q.heap).(turnWatch)
		if seq, ok := q.current[w.gameID]; ok && seq == w.seq {
			out = append(out, w)
		}
	}
	return out
}

func (q *turnQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.current)
}

// channelLocks serialises read-modify-write sequences on a channel's game.
type channelLocks struct {
	locks sync.Map
}

func (l *channelLocks) lock(channelID int64) func() {
	m, _ := l.locks.LoadOrStore(channelID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
