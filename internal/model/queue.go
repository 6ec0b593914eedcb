package model

import (
	"errors"
	"sync"
	"time"
)

var ErrAlreadyQueued = errors.New("game already queued")

// QueuedSearch is a game waiting for the engine to reply.
type QueuedSearch struct {
	GameID   string
	QueuedAt time.Time
}

// SearchQueue orders engine replies first come, first served. A game is in
// the queue at most once.
type SearchQueue struct {
	items []QueuedSearch
	mu    sync.Mutex
}

func NewSearchQueue() *SearchQueue {
	return &SearchQueue{
		items: []QueuedSearch{},
	}
}

func (q *SearchQueue) Add(gameID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.GameID == gameID {
			return ErrAlreadyQueued
		}
	}

	q.items = append(q.items, QueuedSearch{
		GameID:   gameID,
		QueuedAt: time.Now(),
	})
	return nil
}

// Next removes and returns the game that has waited longest.
func (q *SearchQueue) Next() (QueuedSearch, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return QueuedSearch{}, false
	}
	next := q.items[0]
	q.items = q.items[1:]
	return next, true
}

// Remove drops gameID from the queue if it is waiting.
func (q *SearchQueue) Remove(gameID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.GameID == gameID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *SearchQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
