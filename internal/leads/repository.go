package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	// Upsert creates a lead, or merges into the lead with the same phone or
	// email. The bool reports whether a new lead was created.
	Upsert(ctx context.Context, req *CreateLeadRequest) (*Lead, bool, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error)
	Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error)
	Delete(ctx context.Context, id string) error
}

// clock and id generator shared by the repositories; overridden in tests.
type deps struct {
	now   func() time.Time
	newID func() string
}

func defaultDeps() deps {
	return deps{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// upsertSlice applies an upsert to an in-memory snapshot and returns the stored lead.
func (d deps) upsertSlice(all []*Lead, req *CreateLeadRequest) ([]*Lead, *Lead, bool) {
	now := d.now()
	for _, existing := range all {
		if existing.sameCustomer(req) {
			existing.merge(req, now)
			return all, existing, false
		}
	}
	lead := newLead(d.newID(), req, now)
	return append(all, lead), lead, true
}

// InMemoryRepository keeps leads in process memory; used in tests and as the
// last fallback when no durable store is configured.
type InMemoryRepository struct {
	deps
	mu    sync.RWMutex
	leads []*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{deps: defaultDeps()}
}

// Upsert creates or merges a lead in memory
func (r *InMemoryRepository) Upsert(ctx context.Context, req *CreateLeadRequest) (*Lead, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	req = req.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		lead    *Lead
		created bool
	)
	r.leads, lead, created = r.upsertSlice(r.leads, req)
	return lead.clone(), created, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.leads {
		if l.ID == id {
			return l.clone(), nil
		}
	}
	return nil, ErrLeadNotFound
}

// List returns leads newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return applyFilter(r.leads, filter), nil
}

// Update applies dashboard edits to a lead.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.leads {
		if l.ID == id {
			l.apply(req, r.now())
			return l.clone(), nil
		}
	}
	return nil, ErrLeadNotFound
}

// Delete removes a lead.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, l := range r.leads {
		if l.ID == id {
			r.leads = append(r.leads[:i], r.leads[i+1:]...)
			return nil
		}
	}
	return ErrLeadNotFound
}
