package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/storage/kv"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestLocal(t *testing.T, opts ...LocalOption) (*LocalRepository, kv.Backend) {
	t.Helper()
	backend := kv.NewMemoryBackend()
	clock := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]LocalOption{WithClock(clock.Now)}, opts...)
	return NewLocalRepository(backend, opts...), backend
}

type failingBackend struct {
	kv.Backend
	err error
}

func (f *failingBackend) Set(context.Context, string, []byte) error { return f.err }

func TestLocalRepository_CreateProject(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	p, err := repo.CreateProject(ctx, "  ", "<p>x</p>", "", "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.DefaultProjectName, p.Name)
	assert.Equal(t, domain.DefaultSettings(), p.Settings)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	active, err := repo.GetActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, active)

	loaded, err := repo.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestLocalRepository_SaveIsIdempotentOnContent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	p, err := repo.CreateProject(ctx, "demo", "<p>a</p>", "", "", nil)
	require.NoError(t, err)

	first, err := repo.SaveProject(ctx, p)
	require.NoError(t, err)
	second, err := repo.SaveProject(ctx, first)
	require.NoError(t, err)

	list, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	loaded, err := repo.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.HTML, loaded.HTML)
	assert.Equal(t, second.UpdatedAt, loaded.UpdatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestLocalRepository_SaveLastWriterWins(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	p, err := repo.CreateProject(ctx, "demo", "v1", "", "", nil)
	require.NoError(t, err)

	p.HTML = "v2"
	_, err = repo.SaveProject(ctx, p)
	require.NoError(t, err)
	p.HTML = "v3"
	saved, err := repo.SaveProject(ctx, p)
	require.NoError(t, err)

	loaded, err := repo.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "v3", loaded.HTML)
	assert.Equal(t, saved.UpdatedAt, loaded.UpdatedAt)
}

func TestLocalRepository_SaveNeverMovesUpdatedAtBackwards(t *testing.T) {
	ctx := context.Background()
	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	repo, _ := newTestLocal(t)

	p, err := repo.CreateProject(ctx, "demo", "", "", "", nil)
	require.NoError(t, err)
	p.UpdatedAt = future
	require.NoError(t, repo.ImportProject(ctx, p))

	saved, err := repo.SaveProject(ctx, &domain.Project{ID: p.ID, Name: "demo"})
	require.NoError(t, err)
	assert.Equal(t, future, saved.UpdatedAt)
}

func TestLocalRepository_SaveRejectsMissingID(t *testing.T) {
	repo, _ := newTestLocal(t)
	_, err := repo.SaveProject(context.Background(), &domain.Project{Name: "x"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestLocalRepository_Durability(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryBackend()

	repo := NewLocalRepository(backend)
	p, err := repo.CreateProject(ctx, "keep me", "<b>x</b>", "b{}", "x()", nil)
	require.NoError(t, err)

	// a fresh repository over the same backend sees the same data
	reopened := NewLocalRepository(backend)
	loaded, err := reopened.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.HTML, loaded.HTML)
	assert.Equal(t, p.UpdatedAt, loaded.UpdatedAt)

	active, err := reopened.GetActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, active)
}

func TestLocalRepository_ListProjectsSortedByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	a, err := repo.CreateProject(ctx, "a", "", "", "", nil)
	require.NoError(t, err)
	b, err := repo.CreateProject(ctx, "b", "", "", "", nil)
	require.NoError(t, err)
	_, err = repo.SaveProject(ctx, a)
	require.NoError(t, err)

	list, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestLocalRepository_DuplicateProject(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	src, err := repo.CreateProject(ctx, "demo", "<p>a</p>", "", "", []domain.ExternalLibrary{
		{ID: "l1", Name: "lodash", URL: "https://cdn.example.com/lodash.js", Type: domain.LibraryJS},
	})
	require.NoError(t, err)

	dup, err := repo.DuplicateProject(ctx, src.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Equal(t, "demo (Copy)", dup.Name)
	assert.Equal(t, src.HTML, dup.HTML)
	assert.Equal(t, src.ExternalLibraries, dup.ExternalLibraries)

	active, err := repo.GetActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, dup.ID, active)

	named, err := repo.DuplicateProject(ctx, src.ID, "fork")
	require.NoError(t, err)
	assert.Equal(t, "fork", named.Name)

	_, err = repo.DuplicateProject(ctx, "missing", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLocalRepository_RenameProject(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	p, err := repo.CreateProject(ctx, "demo", "", "", "", nil)
	require.NoError(t, err)

	renamed, err := repo.RenameProject(ctx, p.ID, "  better  ")
	require.NoError(t, err)
	assert.Equal(t, "better", renamed.Name)
	assert.True(t, renamed.UpdatedAt.After(p.UpdatedAt))

	_, err = repo.RenameProject(ctx, "missing", "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLocalRepository_DeleteProject(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t)

	keep, err := repo.CreateProject(ctx, "keep", "", "", "", nil)
	require.NoError(t, err)
	drop, err := repo.CreateProject(ctx, "drop", "", "", "", nil)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteProject(ctx, drop.ID))

	_, err = repo.LoadProject(ctx, drop.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	active, err := repo.GetActiveID(ctx)
	require.NoError(t, err)
	assert.Empty(t, active, "deleting the active project clears the pointer")

	_, err = repo.LoadProject(ctx, keep.ID)
	require.NoError(t, err)

	err = repo.DeleteProject(ctx, drop.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLocalRepository_InitializeDefaultProject(t *testing.T) {
	ctx := context.Background()

	t.Run("cold start seeds a project", func(t *testing.T) {
		repo, _ := newTestLocal(t)

		p, err := repo.InitializeDefaultProject(ctx, "<h1>Hello</h1>", "h1{}", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "<h1>Hello</h1>", p.HTML)
		assert.Equal(t, domain.DefaultProjectName, p.Name)

		list, err := repo.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, p.ID, list[0].ID)

		active, err := repo.GetActiveID(ctx)
		require.NoError(t, err)
		assert.Equal(t, p.ID, active)

		again, err := repo.InitializeDefaultProject(ctx, "other", "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, p.ID, again.ID)
	})

	t.Run("falls back to most recent when pointer dangles", func(t *testing.T) {
		repo, _ := newTestLocal(t)

		_, err := repo.CreateProject(ctx, "old", "", "", "", nil)
		require.NoError(t, err)
		recent, err := repo.CreateProject(ctx, "recent", "", "", "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.SetActiveID(ctx, "gone"))

		p, err := repo.InitializeDefaultProject(ctx, "seed", "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, recent.ID, p.ID)

		active, err := repo.GetActiveID(ctx)
		require.NoError(t, err)
		assert.Equal(t, recent.ID, active)
	})
}

func TestLocalRepository_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestLocal(t, WithQuota(1024))

	p, err := repo.CreateProject(ctx, "small", "", "", "", nil)
	require.NoError(t, err)

	p.HTML = strings.Repeat("x", 4096)
	_, err = repo.SaveProject(ctx, p)
	assert.True(t, errors.Is(err, domain.ErrStorage))

	loaded, err := repo.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.HTML, "a rejected write leaves the previous record in place")
}

func TestLocalRepository_BackendFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalRepository(&failingBackend{Backend: kv.NewMemoryBackend(), err: errors.New("disk full")})

	_, err := repo.CreateProject(ctx, "x", "", "", "", nil)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestLocalRepository_CorruptData(t *testing.T) {
	ctx := context.Background()
	repo, backend := newTestLocal(t)
	require.NoError(t, backend.Set(ctx, projectsKey, []byte("{not json")))

	_, err := repo.ListProjects(ctx)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestDuplicateName(t *testing.T) {
	assert.Equal(t, "a (Copy)", DuplicateName("a", ""))
	assert.Equal(t, "b", DuplicateName("a", " b "))
	assert.Equal(t, domain.DefaultProjectName+" (Copy)", DuplicateName("", ""))
}
