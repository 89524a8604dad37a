package session

import (
	"errors"
	"sync"
)

// ErrIncompleteSelection means a timeframe arrived before any asset pick.
var ErrIncompleteSelection = errors.New("no asset selected yet")

// Selection is the (asset, timeframe) pair a user has chosen so far.
// Either field may still be empty while the flow is in progress.
type Selection struct {
	Asset     string
	Timeframe string
}

// Tracker keeps one in-flight selection per user. Entries live for the
// process lifetime; there is no expiry. Concurrent events for different
// users are safe; same-user races are last-write-wins.
type Tracker struct {
	mu         sync.Mutex
	selections map[int64]*Selection
}

func NewTracker() *Tracker {
	return &Tracker{selections: make(map[int64]*Selection)}
}

// RecordAsset stores the user's asset choice. A new asset pick restarts the
// flow, dropping any previously recorded timeframe.
func (t *Tracker) RecordAsset(userID int64, assetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selections[userID] = &Selection{Asset: assetID}
}

// RecordTimeframe stores the user's timeframe choice. It requires a prior
// RecordAsset for the same user.
func (t *Tracker) RecordTimeframe(userID int64, timeframeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	sel, ok := t.selections[userID]
	if !ok || sel.Asset == "" {
		return ErrIncompleteSelection
	}
	sel.Timeframe = timeframeID
	return nil
}

// Selection returns the user's current pair; ok is false when the user has
// never selected anything.
func (t *Tracker) Selection(userID int64) (Selection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sel, ok := t.selections[userID]
	if !ok {
		return Selection{}, false
	}
	return *sel, true
}
