package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/utils"
	"github.com/GoSim-25-26J-441/playground-sync/internal/storage/kv"
)

const (
	projectsKey      = "playground:projects"      // JSON object: project id -> full project
	activeProjectKey = "playground:active_project" // plain project id

	// DefaultQuotaBytes matches the storage budget browsers give a single origin.
	DefaultQuotaBytes = 5 << 20
)

// LocalRepository is the device store. It is always available and is the
// fallback for everything the remote store cannot do.
type LocalRepository struct {
	backend kv.Backend
	quota   int
	now     func() time.Time

	mu sync.Mutex
}

// LocalOption configures a LocalRepository.
type LocalOption func(*LocalRepository)

// WithQuota caps the serialized size of the project map. Zero or less disables the cap.
func WithQuota(bytes int) LocalOption {
	return func(r *LocalRepository) { r.quota = bytes }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) LocalOption {
	return func(r *LocalRepository) { r.now = now }
}

// NewLocalRepository creates a local repository on top of backend.
func NewLocalRepository(backend kv.Backend, opts ...LocalOption) *LocalRepository {
	r := &LocalRepository{
		backend: backend,
		quota:   DefaultQuotaBytes,
		now:     domain.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateProject allocates an id, writes the new project and makes it active.
func (r *LocalRepository) CreateProject(ctx context.Context, name, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	p := r.newProject(name, html, css, js, libs)
	all[p.ID] = p
	if err := r.writeAll(ctx, all); err != nil {
		return nil, err
	}
	if err := r.setActive(ctx, p.ID); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// SaveProject overwrites the stored record (last writer wins) and stamps UpdatedAt.
func (r *LocalRepository) SaveProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	if err := domain.ValidateForWrite(p); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	out := p.Clone()
	out.Name = domain.NormalizeName(out.Name)
	now := r.now()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	prev := out.UpdatedAt
	if existing, ok := all[out.ID]; ok && existing.UpdatedAt.After(prev) {
		prev = existing.UpdatedAt
	}
	out.UpdatedAt = domain.NextUpdatedAt(now, prev)

	all[out.ID] = out
	if err := r.writeAll(ctx, all); err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// ImportProject stores a record exactly as given, timestamps included. It is
// how copies of remote records land on the device.
func (r *LocalRepository) ImportProject(ctx context.Context, p *domain.Project) error {
	if err := domain.ValidateForWrite(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return err
	}
	cp := p.Clone()
	cp.Name = domain.NormalizeName(cp.Name)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.now()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	all[cp.ID] = cp
	return r.writeAll(ctx, all)
}

// LoadProject returns the project or domain.ErrNotFound.
func (r *LocalRepository) LoadProject(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// ListProjects returns metadata for every stored project, most recently updated first.
func (r *LocalRepository) ListProjects(ctx context.Context) ([]domain.ProjectMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return sortedMetadata(all), nil
}

// DuplicateProject copies id under a new id and makes the copy active.
func (r *LocalRepository) DuplicateProject(ctx context.Context, id, newName string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	src, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	dup := src.Clone()
	dup.ID = utils.NewProjectID()
	dup.Name = DuplicateName(src.Name, newName)
	now := r.now()
	dup.CreatedAt = now
	dup.UpdatedAt = now

	all[dup.ID] = dup
	if err := r.writeAll(ctx, all); err != nil {
		return nil, err
	}
	if err := r.setActive(ctx, dup.ID); err != nil {
		return nil, err
	}
	return dup.Clone(), nil
}

// RenameProject changes the stored name of id.
func (r *LocalRepository) RenameProject(ctx context.Context, id, name string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	p.Name = domain.NormalizeName(name)
	p.UpdatedAt = domain.NextUpdatedAt(r.now(), p.UpdatedAt)
	if err := r.writeAll(ctx, all); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// DeleteProject removes id. If it was active the pointer is cleared and the
// caller picks the replacement.
func (r *LocalRepository) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(all, id)
	if err := r.writeAll(ctx, all); err != nil {
		return err
	}

	active, err := r.getActive(ctx)
	if err != nil {
		return err
	}
	if active == id {
		if err := r.backend.Delete(ctx, activeProjectKey); err != nil {
			return fmt.Errorf("%w: clear active project: %w", domain.ErrStorage, err)
		}
	}
	return nil
}

// GetActiveID returns the active project id, or "" when none is set.
func (r *LocalRepository) GetActiveID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getActive(ctx)
}

// SetActiveID repoints the active project.
func (r *LocalRepository) SetActiveID(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: project id required", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setActive(ctx, id)
}

// InitializeDefaultProject guarantees an active project exists and returns it:
// the current active one if it resolves, else the most recently updated
// project, else a new project seeded with the given content.
func (r *LocalRepository) InitializeDefaultProject(ctx context.Context, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	active, err := r.getActive(ctx)
	if err != nil {
		return nil, err
	}
	if p, ok := all[active]; ok {
		return p.Clone(), nil
	}

	if len(all) > 0 {
		latest := sortedMetadata(all)[0]
		if err := r.setActive(ctx, latest.ID); err != nil {
			return nil, err
		}
		return all[latest.ID].Clone(), nil
	}

	p := r.newProject("", html, css, js, libs)
	all[p.ID] = p
	if err := r.writeAll(ctx, all); err != nil {
		return nil, err
	}
	if err := r.setActive(ctx, p.ID); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Ping checks the backend is reachable.
func (r *LocalRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// DuplicateName is the name given to a copy when the caller does not choose one.
func DuplicateName(srcName, newName string) string {
	if strings.TrimSpace(newName) != "" {
		return strings.TrimSpace(newName)
	}
	return domain.NormalizeName(srcName) + " (Copy)"
}

func (r *LocalRepository) newProject(name, html, css, js string, libs []domain.ExternalLibrary) *domain.Project {
	now := r.now()
	p := &domain.Project{
		ID:                utils.NewProjectID(),
		Name:              domain.NormalizeName(name),
		HTML:              html,
		CSS:               css,
		JavaScript:        js,
		ExternalLibraries: make([]domain.ExternalLibrary, len(libs)),
		Settings:          domain.DefaultSettings(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	copy(p.ExternalLibraries, libs)
	return p
}

func (r *LocalRepository) readAll(ctx context.Context) (map[string]*domain.Project, error) {
	data, err := r.backend.Get(ctx, projectsKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return make(map[string]*domain.Project), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read projects: %w", domain.ErrStorage, err)
	}

	all := make(map[string]*domain.Project)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: corrupt project data: %w", domain.ErrStorage, err)
	}
	for id, p := range all {
		if p == nil {
			delete(all, id)
		}
	}
	return all, nil
}

func (r *LocalRepository) writeAll(ctx context.Context, all map[string]*domain.Project) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("%w: encode projects: %w", domain.ErrStorage, err)
	}
	if r.quota > 0 && len(data) > r.quota {
		return fmt.Errorf("%w: quota exceeded (%d > %d bytes)", domain.ErrStorage, len(data), r.quota)
	}
	if err := r.backend.Set(ctx, projectsKey, data); err != nil {
		return fmt.Errorf("%w: write projects: %w", domain.ErrStorage, err)
	}
	return nil
}

func (r *LocalRepository) getActive(ctx context.Context) (string, error) {
	data, err := r.backend.Get(ctx, activeProjectKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read active project: %w", domain.ErrStorage, err)
	}
	return string(data), nil
}

func (r *LocalRepository) setActive(ctx context.Context, id string) error {
	if err := r.backend.Set(ctx, activeProjectKey, []byte(id)); err != nil {
		return fmt.Errorf("%w: write active project: %w", domain.ErrStorage, err)
	}
	return nil
}

func sortedMetadata(all map[string]*domain.Project) []domain.ProjectMetadata {
	out := make([]domain.ProjectMetadata, 0, len(all))
	for _, p := range all {
		out = append(out, p.Metadata())
	}
	SortMetadata(out)
	return out
}

// SortMetadata orders listings most recently updated first, ties broken by id.
func SortMetadata(items []domain.ProjectMetadata) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
