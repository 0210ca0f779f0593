package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/repository"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/utils"
	"github.com/GoSim-25-26J-441/playground-sync/internal/storage/kv"
)

type remoteRow struct {
	owner   string
	project *domain.Project
	deleted bool
}

// fakeRemote is an in-memory RemoteStore with owner scoping, soft deletes
// and the updated_at precondition.
type fakeRemote struct {
	mu    sync.Mutex
	users auth.UserSource
	rows  map[string]*remoteRow
	fail  error
	calls map[string]int
}

var _ repository.RemoteStore = (*fakeRemote)(nil)

func newFakeRemote(users auth.UserSource) *fakeRemote {
	return &fakeRemote{
		users: users,
		rows:  make(map[string]*remoteRow),
		calls: make(map[string]int),
	}
}

func (f *fakeRemote) begin(op string) (string, error) {
	f.calls[op]++
	if f.fail != nil {
		return "", f.fail
	}
	uid, ok := f.users.CurrentUserID()
	if !ok {
		return "", domain.ErrAuthRequired
	}
	return uid, nil
}

func (f *fakeRemote) live(uid, id string) (*remoteRow, bool) {
	row, ok := f.rows[id]
	if !ok || row.deleted || row.owner != uid {
		return nil, false
	}
	return row, true
}

// seed stores p for owner directly, bypassing auth.
func (f *fakeRemote) seed(owner string, p *domain.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.ID] = &remoteRow{owner: owner, project: p.Clone()}
}

func (f *fakeRemote) get(id string) *domain.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.deleted {
		return nil
	}
	return row.project.Clone()
}

func (f *fakeRemote) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeRemote) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) CreateProject(ctx context.Context, name, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error) {
	now := domain.Now()
	return f.CreateProjectWithID(ctx, &domain.Project{
		ID: utils.NewProjectID(), Name: name, HTML: html, CSS: css, JavaScript: js,
		ExternalLibraries: libs, Settings: domain.DefaultSettings(), CreatedAt: now, UpdatedAt: now,
	})
}

func (f *fakeRemote) CreateProjectWithID(_ context.Context, p *domain.Project) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("create")
	if err != nil {
		return nil, err
	}
	if _, taken := f.rows[p.ID]; taken {
		return nil, fmt.Errorf("%w: id %s", domain.ErrConflict, p.ID)
	}
	f.rows[p.ID] = &remoteRow{owner: uid, project: p.Clone()}
	return p.Clone(), nil
}

func (f *fakeRemote) SaveProject(_ context.Context, p *domain.Project, base time.Time) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("save")
	if err != nil {
		return time.Time{}, err
	}
	row, ok := f.live(uid, p.ID)
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	if !base.IsZero() && !row.project.UpdatedAt.Equal(base) {
		return time.Time{}, domain.ErrConflict
	}
	stored := p.Clone()
	stored.CreatedAt = row.project.CreatedAt
	row.project = stored
	return stored.UpdatedAt, nil
}

func (f *fakeRemote) LoadProject(_ context.Context, id string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("load")
	if err != nil {
		return nil, err
	}
	row, ok := f.live(uid, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return row.project.Clone(), nil
}

func (f *fakeRemote) ListProjects(context.Context) ([]domain.ProjectMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("list")
	if err != nil {
		return nil, err
	}
	out := []domain.ProjectMetadata{}
	for id := range f.rows {
		if row, ok := f.live(uid, id); ok {
			out = append(out, row.project.Metadata())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeRemote) DuplicateProject(_ context.Context, id, newName string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("duplicate")
	if err != nil {
		return nil, err
	}
	row, ok := f.live(uid, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	dup := row.project.Clone()
	dup.ID = utils.NewProjectID()
	dup.Name = repository.DuplicateName(row.project.Name, newName)
	dup.CreatedAt = domain.Now()
	dup.UpdatedAt = dup.CreatedAt
	f.rows[dup.ID] = &remoteRow{owner: uid, project: dup.Clone()}
	return dup, nil
}

func (f *fakeRemote) RenameProject(_ context.Context, id, name string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("rename")
	if err != nil {
		return nil, err
	}
	row, ok := f.live(uid, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	row.project.Name = domain.NormalizeName(name)
	row.project.UpdatedAt = domain.NextUpdatedAt(domain.Now(), row.project.UpdatedAt)
	return row.project.Clone(), nil
}

func (f *fakeRemote) DeleteProject(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.begin("delete")
	if err != nil {
		return err
	}
	row, ok := f.live(uid, id)
	if !ok {
		return domain.ErrNotFound
	}
	row.deleted = true
	return nil
}

func (f *fakeRemote) PurgeDeleted(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, row := range f.rows {
		if row.deleted {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

// countingBackend counts writes per key.
type countingBackend struct {
	kv.Backend
	mu     sync.Mutex
	writes map[string]int
}

func newCountingBackend() *countingBackend {
	return &countingBackend{Backend: kv.NewMemoryBackend(), writes: make(map[string]int)}
}

func (b *countingBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	b.writes[key]++
	b.mu.Unlock()
	return b.Backend.Set(ctx, key, value)
}

func (b *countingBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[key]
}
