package usecase

import (
	"sync"
	"time"

	"github.com/4406arthur/copilot/domain"
)

// DefaultCooldown is the least time between two evaluation triggers.
const DefaultCooldown = 3 * time.Second

//Registry tracks which evaluations this client has set up, is following, or
//has seen finish. Ids enter on submit and leave the ongoing set on a terminal
//state. One Registry is shared by everything that starts evaluations.
type Registry struct {
	mu          sync.Mutex
	cooldown    time.Duration
	now         func() time.Time
	lastTrigger time.Time
	markSchemes map[string]struct{}
	ongoing     map[string]struct{}
	completed   map[string]struct{}
}

//NewRegistry ...
func NewRegistry(cooldown time.Duration) *Registry {
	return &Registry{
		cooldown:    cooldown,
		now:         time.Now,
		markSchemes: make(map[string]struct{}),
		ongoing:     make(map[string]struct{}),
		completed:   make(map[string]struct{}),
	}
}

// RecordMarkScheme notes a successful mark-scheme upload for id.
func (r *Registry) RecordMarkScheme(id string) {
	r.mu.Lock()
	r.markSchemes[id] = struct{}{}
	r.mu.Unlock()
}

// HasMarkScheme reports whether answer sheets may be uploaded for id.
func (r *Registry) HasMarkScheme(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.markSchemes[id]
	return ok
}

// Begin claims id for a new trigger. It fails while id is being followed, or
// within the cooldown of the previous trigger for any id.
func (r *Registry) Begin(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ongoing[id]; ok {
		return domain.ErrEvaluationInFlight
	}
	now := r.now()
	if !r.lastTrigger.IsZero() && now.Sub(r.lastTrigger) < r.cooldown {
		return domain.ErrCooldown
	}
	r.lastTrigger = now
	r.ongoing[id] = struct{}{}
	delete(r.completed, id)
	return nil
}

// Attach claims id for following without triggering it again.
func (r *Registry) Attach(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ongoing[id]; ok {
		return domain.ErrEvaluationInFlight
	}
	r.ongoing[id] = struct{}{}
	return nil
}

// Finish releases id; completed marks that results arrived.
func (r *Registry) Finish(id string, completed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ongoing, id)
	if completed {
		r.completed[id] = struct{}{}
	}
}

func (r *Registry) Ongoing(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ongoing[id]
	return ok
}

func (r *Registry) Completed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.completed[id]
	return ok
}
