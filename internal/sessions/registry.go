package sessions

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ielts-prep/backend/internal/content"
	"github.com/ielts-prep/backend/internal/models"
	"github.com/ielts-prep/backend/internal/practice"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrForbidden = errors.New("session belongs to another user")
)

// entry is one live session. Everything below mu is guarded by it; the
// registry only ever touches id, userID and lastSeen.
type entry struct {
	id       string
	userID   int64
	lastSeen time.Time

	mu          sync.Mutex
	sel         content.Selection
	session     *practice.Session
	createdAt   time.Time
	submittedAt time.Time
	outcome     *models.RecordOutcome
	recorded    bool
	published   bool
}

// Registry holds the live sessions of every learner. Entries are isolated
// from one another: two sessions never share answer state or a lock.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *Registry) add(userID int64, sel content.Selection, s *practice.Session) *entry {
	now := r.now()
	e := &entry{
		id:        uuid.NewString(),
		userID:    userID,
		lastSeen:  now,
		sel:       sel,
		session:   s,
		createdAt: now,
	}
	r.mu.Lock()
	r.entries[e.id] = e
	r.mu.Unlock()
	return e
}

// get returns the entry if it exists and belongs to userID, refreshing its
// idle timer.
func (r *Registry) get(id string, userID int64) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.userID != userID {
		return nil, ErrForbidden
	}
	e.lastSeen = r.now()
	return e, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops sessions idle for longer than the TTL and reports how many
// went. A zero TTL keeps everything.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("[sessions] expired %d idle sessions, %d live", n, r.Len())
			}
		}
	}
}
