package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository stores all leads in a single JSON document on local disk.
// It is meant for local development where neither Redis nor Postgres is running.
type FileRepository struct {
	deps
	mu   sync.Mutex
	path string
}

// NewFileRepository creates the data directory if needed and stores leads in dir/leads.json.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("leads: create data dir: %w", err)
	}
	return &FileRepository{deps: defaultDeps(), path: filepath.Join(dir, "leads.json")}, nil
}

// Path returns the backing file location.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) load() ([]*Lead, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leads: read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var all []*Lead
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("leads: decode %s: %w", r.path, err)
	}
	return all, nil
}

// save writes through a temp file so a crash never leaves a truncated document.
func (r *FileRepository) save(all []*Lead) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("leads: encode: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("leads: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("leads: replace %s: %w", r.path, err)
	}
	return nil
}

// Upsert creates or merges a lead and rewrites the file.
func (r *FileRepository) Upsert(ctx context.Context, req *CreateLeadRequest) (*Lead, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	req = req.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()
	all, err := r.load()
	if err != nil {
		return nil, false, err
	}
	all, lead, created := r.upsertSlice(all, req)
	if err := r.save(all); err != nil {
		return nil, false, err
	}
	return lead.clone(), created, nil
}

// GetByID retrieves a lead by ID.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, l := range all {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, ErrLeadNotFound
}

// List returns leads newest first.
func (r *FileRepository) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	return applyFilter(all, filter), nil
}

// Update applies dashboard edits to a lead.
func (r *FileRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, l := range all {
		if l.ID != id {
			continue
		}
		l.apply(req, r.now())
		if err := r.save(all); err != nil {
			return nil, err
		}
		return l.clone(), nil
	}
	return nil, ErrLeadNotFound
}

// Delete removes a lead.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	all, err := r.load()
	if err != nil {
		return err
	}
	for i, l := range all {
		if l.ID == id {
			return r.save(append(all[:i], all[i+1:]...))
		}
	}
	return ErrLeadNotFound
}
