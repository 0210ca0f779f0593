package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/metrics"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/repository"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/utils"
)

// DefaultDebounce is how long a fresh sign-in waits before uploading the open project.
const DefaultDebounce = 1500 * time.Millisecond

// LocalStore is the device store the coordinator writes through.
type LocalStore interface {
	CreateProject(ctx context.Context, name, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error)
	SaveProject(ctx context.Context, p *domain.Project) (*domain.Project, error)
	ImportProject(ctx context.Context, p *domain.Project) error
	LoadProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.ProjectMetadata, error)
	DuplicateProject(ctx context.Context, id, newName string) (*domain.Project, error)
	RenameProject(ctx context.Context, id, name string) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GetActiveID(ctx context.Context) (string, error)
	SetActiveID(ctx context.Context, id string) error
	InitializeDefaultProject(ctx context.Context, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error)
}

var _ LocalStore = (*repository.LocalRepository)(nil)

// AuthSource is the part of auth.Session the coordinator depends on.
type AuthSource interface {
	CurrentUserID() (string, bool)
	Subscribe(fn func(auth.State)) (unsubscribe func())
}

// Options tune a Coordinator. Zero values get defaults.
type Options struct {
	Seed     Seed
	Debounce time.Duration
	Logger   *zap.Logger
	Metrics  *metrics.SyncMetrics
}

// Status is the coordinator's observable progress.
type Status struct {
	Loading        bool       `json:"loading"`
	Saving         bool       `json:"saving"`
	Syncing        bool       `json:"syncing"`
	Authenticated  bool       `json:"authenticated"`
	RemoteEnabled  bool       `json:"remoteEnabled"`
	PendingUploads int        `json:"pendingUploads"`
	LastSyncError  string     `json:"lastSyncError,omitempty"`
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty"`
}

// Coordinator owns the open project and the project list, and decides for
// every command which store serves it. The device store always takes the
// write. The remote store is used when someone is signed in, and its
// failures downgrade to local-only behaviour instead of surfacing.
type Coordinator struct {
	local    LocalStore
	remote   repository.RemoteStore
	auth     AuthSource
	logger   *zap.Logger
	metrics  *metrics.SyncMetrics
	seed     Seed
	debounce time.Duration
	up       *uploader

	// cmdMu serializes commands that touch the stores.
	cmdMu sync.Mutex

	mu            sync.RWMutex
	current       *domain.Project
	list          []domain.ProjectMetadata
	loading       bool
	saving        bool
	userID        string
	lastRemoteErr error
	closed        bool

	timerMu  sync.Mutex
	timer    *time.Timer
	timerGen uint64

	unsubscribe func()
	bg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewCoordinator wires a coordinator. remote may be nil, in which case the
// coordinator runs local-only no matter who is signed in.
func NewCoordinator(local LocalStore, remote repository.RemoteStore, session AuthSource, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	c := &Coordinator{
		local:    local,
		remote:   remote,
		auth:     session,
		logger:   opts.Logger.Named("coordinator"),
		metrics:  opts.Metrics,
		seed:     opts.Seed,
		debounce: opts.Debounce,
	}
	if remote != nil {
		c.up = newUploader(remote, c.logger.Named("uploader"), opts.Metrics)
	}
	return c
}

// Start loads the initial project and begins following auth changes.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.auth != nil {
		uid, _ := c.auth.CurrentUserID()
		c.mu.Lock()
		c.userID = uid
		c.mu.Unlock()
		c.unsubscribe = c.auth.Subscribe(c.onAuthChange)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	p, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	c.setCurrent(p)
	_, err = c.refreshList(ctx)
	return err
}

// bootstrap picks the project to open: the most recent remote one when
// signed in and the remote has any, otherwise whatever the device store
// resolves to.
func (c *Coordinator) bootstrap(ctx context.Context) (*domain.Project, error) {
	if c.remoteEnabled() {
		p, err := c.remoteMostRecent(ctx)
		switch {
		case err != nil:
			c.remoteFailed("bootstrap", err)
		case p != nil:
			if err := c.adoptRemote(ctx, p); err != nil {
				return nil, err
			}
			c.logger.Info("opened most recent remote project", zap.String("project_id", p.ID))
			return p, nil
		}
	}

	p, err := c.local.InitializeDefaultProject(ctx, c.seed.HTML, c.seed.CSS, c.seed.JavaScript, c.seed.Libraries)
	c.metrics.LocalWrite("initialize", err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Coordinator) remoteMostRecent(ctx context.Context) (*domain.Project, error) {
	items, err := c.remote.ListProjects(ctx)
	c.metrics.RemoteOp("list", err)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	repository.SortMetadata(items)
	p, err := c.remote.LoadProject(ctx, items[0].ID)
	c.metrics.RemoteOp("load", err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// adoptRemote mirrors a remote record onto the device and makes it active.
func (c *Coordinator) adoptRemote(ctx context.Context, p *domain.Project) error {
	err := c.local.ImportProject(ctx, p)
	c.metrics.LocalWrite("import", err)
	if err != nil {
		return err
	}
	if err := c.local.SetActiveID(ctx, p.ID); err != nil {
		return err
	}
	c.up.SetBase(p.ID, p.UpdatedAt)
	return nil
}

// RefreshProjectList rebuilds the project list from both stores.
func (c *Coordinator) RefreshProjectList(ctx context.Context) ([]domain.ProjectMetadata, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.refreshList(ctx)
}

func (c *Coordinator) refreshList(ctx context.Context) ([]domain.ProjectMetadata, error) {
	local, err := c.local.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	var remote []domain.ProjectMetadata
	if c.remoteEnabled() {
		remote, err = c.remote.ListProjects(ctx)
		c.metrics.RemoteOp("list", err)
		if err != nil {
			c.remoteFailed("list", err)
			remote = nil
		} else {
			c.remoteOK()
		}
	}

	merged := MergeListings(remote, local)
	c.mu.Lock()
	c.list = merged
	c.mu.Unlock()
	return cloneList(merged), nil
}

// MergeListings unions two listings by id. Remote entries win on a
// collision. The result is ordered newest first.
func MergeListings(remote, local []domain.ProjectMetadata) []domain.ProjectMetadata {
	out := make([]domain.ProjectMetadata, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)+len(local))
	for _, m := range remote {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	for _, m := range local {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	repository.SortMetadata(out)
	return out
}

// SaveCurrentProject writes the open project to the device store. That
// write is the whole success criterion. When signed in, a snapshot is also
// handed to the uploader, and its outcome only shows up in Status.
func (c *Coordinator) SaveCurrentProject(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.RLock()
	p := c.current.Clone()
	c.mu.RUnlock()
	if p == nil {
		return fmt.Errorf("%w: no project is open", domain.ErrValidation)
	}

	c.setSaving(true)
	defer c.setSaving(false)

	saved, err := c.local.SaveProject(ctx, p)
	c.metrics.LocalWrite("save", err)
	if err != nil {
		c.logger.Error("save failed", zap.String("project_id", p.ID), zap.Error(err))
		return err
	}

	c.mu.Lock()
	if c.current != nil && c.current.ID == saved.ID {
		c.current.Name = saved.Name
		if c.current.CreatedAt.IsZero() {
			c.current.CreatedAt = saved.CreatedAt
		}
		if c.current.UpdatedAt.Before(saved.UpdatedAt) {
			c.current.UpdatedAt = saved.UpdatedAt
		}
	}
	c.upsertListLocked(saved.Metadata())
	c.mu.Unlock()

	if c.remoteEnabled() {
		c.up.Enqueue(saved, false, nil)
	}
	return nil
}

// SwitchProject opens id. The remote copy is preferred when signed in
// unless the device holds a newer one.
func (c *Coordinator) SwitchProject(ctx context.Context, id string) (*domain.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: project id required", domain.ErrValidation)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	p, err := c.open(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setCurrent(p)
	return p.Clone(), nil
}

// open loads id from the best store, mirrors remote records locally and
// repoints the device's active pointer. A device copy newer than the
// remote one is kept and queued for upload.
func (c *Coordinator) open(ctx context.Context, id string) (*domain.Project, error) {
	local, localErr := c.local.LoadProject(ctx, id)
	if localErr != nil && !errors.Is(localErr, domain.ErrNotFound) {
		return nil, localErr
	}

	pushLocal := false
	if c.remoteEnabled() {
		rp, err := c.remote.LoadProject(ctx, id)
		c.metrics.RemoteOp("load", err)
		switch {
		case err == nil:
			c.remoteOK()
			if local == nil || !local.UpdatedAt.After(rp.UpdatedAt) {
				if err := c.adoptRemote(ctx, rp); err != nil {
					return nil, err
				}
				return rp, nil
			}
			c.up.SetBase(id, rp.UpdatedAt)
			pushLocal = true
		case errors.Is(err, domain.ErrNotFound):
			c.logger.Debug("project not in remote store", zap.String("project_id", id))
		default:
			c.remoteFailed("load", err)
		}
	}

	if localErr != nil {
		return nil, localErr
	}
	if err := c.local.SetActiveID(ctx, id); err != nil {
		return nil, err
	}
	if pushLocal {
		c.up.Enqueue(local, false, nil)
	}
	return local, nil
}

// CreateNewProject creates a project from the starter template, opens it
// and queues the remote copy under the same id.
func (c *Coordinator) CreateNewProject(ctx context.Context, name string) (*domain.Project, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	p, err := c.local.CreateProject(ctx, name, c.seed.HTML, c.seed.CSS, c.seed.JavaScript, c.seed.Libraries)
	c.metrics.LocalWrite("create", err)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = p.Clone()
	c.upsertListLocked(p.Metadata())
	c.mu.Unlock()

	if c.remoteEnabled() {
		c.up.Enqueue(p, true, nil)
	}
	c.logger.Info("project created", zap.String("project_id", p.ID))
	return p, nil
}

// DuplicateProject copies id and opens the copy.
func (c *Coordinator) DuplicateProject(ctx context.Context, id, newName string) (*domain.Project, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.remoteEnabled() {
		var dup *domain.Project
		err := c.up.Do(ctx, id, func(ctx context.Context) error {
			var err error
			dup, err = c.remote.DuplicateProject(ctx, id, newName)
			c.metrics.RemoteOp("duplicate", err)
			return err
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			c.remoteOK()
			if err := c.adoptRemote(ctx, dup); err != nil {
				return nil, err
			}
			c.opened(dup)
			return dup.Clone(), nil
		}
		c.remoteFailed("duplicate", err)
	}

	dup, err := c.local.DuplicateProject(ctx, id, newName)
	c.metrics.LocalWrite("duplicate", err)
	if err != nil {
		return nil, err
	}
	c.opened(dup)
	return dup.Clone(), nil
}

// RenameProject renames id in both stores. The remote rename waits behind
// any upload already queued for id.
func (c *Coordinator) RenameProject(ctx context.Context, id, name string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: project name required", domain.ErrValidation)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	var renamed *domain.Project
	if c.remoteEnabled() {
		c.up.Retitle(id, name)
		var rp *domain.Project
		err := c.up.Do(ctx, id, func(ctx context.Context) error {
			var err error
			rp, err = c.remote.RenameProject(ctx, id, name)
			c.metrics.RemoteOp("rename", err)
			if err == nil {
				c.up.SetBase(id, rp.UpdatedAt)
			}
			return err
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			c.remoteOK()
			renamed = rp
		} else {
			c.remoteFailed("rename", err)
		}
	}

	lp, err := c.local.RenameProject(ctx, id, name)
	c.metrics.LocalWrite("rename", err)
	switch {
	case err == nil:
		renamed = lp
	case errors.Is(err, domain.ErrNotFound) && renamed != nil:
		ierr := c.local.ImportProject(ctx, renamed)
		c.metrics.LocalWrite("import", ierr)
		if ierr != nil {
			return nil, ierr
		}
	default:
		return nil, err
	}

	c.mu.Lock()
	if c.current != nil && c.current.ID == id {
		c.current.Name = renamed.Name
		if c.current.UpdatedAt.Before(renamed.UpdatedAt) {
			c.current.UpdatedAt = renamed.UpdatedAt
		}
	}
	c.upsertListLocked(renamed.Metadata())
	c.mu.Unlock()
	return renamed.Clone(), nil
}

// DeleteProject removes id from both stores. Deleting the open project
// opens the most recent remaining one, or a fresh starter project.
func (c *Coordinator) DeleteProject(ctx context.Context, id string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	remoteDeleted := false
	if c.remoteEnabled() {
		err := c.up.Do(ctx, id, func(ctx context.Context) error {
			err := c.remote.DeleteProject(ctx, id)
			c.metrics.RemoteOp("delete", err)
			return err
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case err == nil:
			c.remoteOK()
			remoteDeleted = true
		case errors.Is(err, domain.ErrNotFound):
		default:
			c.remoteFailed("delete", err)
		}
	}

	err := c.local.DeleteProject(ctx, id)
	c.metrics.LocalWrite("delete", err)
	if err != nil && !(errors.Is(err, domain.ErrNotFound) && remoteDeleted) {
		return err
	}
	if c.up != nil {
		c.up.Forget(id)
	}

	c.mu.Lock()
	wasCurrent := c.current != nil && c.current.ID == id
	c.removeListLocked(id)
	c.mu.Unlock()
	c.logger.Info("project deleted", zap.String("project_id", id), zap.Bool("remote", remoteDeleted))

	if !wasCurrent {
		return nil
	}
	return c.replaceCurrent(ctx)
}

func (c *Coordinator) replaceCurrent(ctx context.Context) error {
	items, err := c.refreshList(ctx)
	if err != nil {
		return err
	}
	for _, m := range items {
		p, err := c.open(ctx, m.ID)
		if err == nil {
			c.setCurrent(p)
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	p, err := c.local.InitializeDefaultProject(ctx, c.seed.HTML, c.seed.CSS, c.seed.JavaScript, c.seed.Libraries)
	c.metrics.LocalWrite("initialize", err)
	if err != nil {
		return err
	}
	c.opened(p)
	return nil
}

// UpdateProjectCode replaces the open project's code buffers in memory.
func (c *Coordinator) UpdateProjectCode(html, css, js string) (*domain.Project, error) {
	return c.edit(func(p *domain.Project) (*domain.Project, error) {
		return domain.UpdateProjectCode(p, html, css, js), nil
	})
}

// UpdateProjectCodePartial replaces the buffers that are non-nil and keeps
// the rest. The merge happens under the same lock as the write.
func (c *Coordinator) UpdateProjectCodePartial(html, css, js *string) (*domain.Project, error) {
	return c.edit(func(p *domain.Project) (*domain.Project, error) {
		nextHTML, nextCSS, nextJS := p.HTML, p.CSS, p.JavaScript
		if html != nil {
			nextHTML = *html
		}
		if css != nil {
			nextCSS = *css
		}
		if js != nil {
			nextJS = *js
		}
		return domain.UpdateProjectCode(p, nextHTML, nextCSS, nextJS), nil
	})
}

// UpdateExternalLibraries replaces the open project's library list in memory.
func (c *Coordinator) UpdateExternalLibraries(libs []domain.ExternalLibrary) (*domain.Project, error) {
	return c.edit(func(p *domain.Project) (*domain.Project, error) {
		return domain.UpdateExternalLibraries(p, libs)
	})
}

// AddExternalLibrary attaches a library by URL. An empty libType is
// inferred from the URL.
func (c *Coordinator) AddExternalLibrary(name, rawURL, libType, description string) (*domain.Project, error) {
	if libType == "" {
		libType = domain.InferLibraryType(rawURL)
	}
	lib := domain.ExternalLibrary{
		ID:          utils.NewLibraryID(),
		Name:        strings.TrimSpace(name),
		URL:         strings.TrimSpace(rawURL),
		Type:        libType,
		Description: description,
		AddedAt:     domain.Now(),
	}
	return c.edit(func(p *domain.Project) (*domain.Project, error) {
		for _, existing := range p.ExternalLibraries {
			if existing.URL == lib.URL {
				return nil, fmt.Errorf("%w: library %q already added", domain.ErrValidation, lib.URL)
			}
		}
		return domain.UpdateExternalLibraries(p, append(p.Clone().ExternalLibraries, lib))
	})
}

// RemoveExternalLibrary detaches the library with libraryID.
func (c *Coordinator) RemoveExternalLibrary(libraryID string) (*domain.Project, error) {
	return c.edit(func(p *domain.Project) (*domain.Project, error) {
		kept := make([]domain.ExternalLibrary, 0, len(p.ExternalLibraries))
		for _, l := range p.ExternalLibraries {
			if l.ID != libraryID {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(p.ExternalLibraries) {
			return nil, fmt.Errorf("%w: library %q", domain.ErrNotFound, libraryID)
		}
		return domain.UpdateExternalLibraries(p, kept)
	})
}

// UpdateSettings applies a partial settings change to the open project.
func (c *Coordinator) UpdateSettings(patch domain.SettingsPatch) (*domain.Project, error) {
	return c.edit(func(p *domain.Project) (*domain.Project, error) {
		return domain.UpdateSettings(p, patch)
	})
}

// edit applies fn to the open project without touching any store.
func (c *Coordinator) edit(fn func(*domain.Project) (*domain.Project, error)) (*domain.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, fmt.Errorf("%w: no project is open", domain.ErrValidation)
	}
	next, err := fn(c.current)
	if err != nil {
		return nil, err
	}
	c.current = next
	return next.Clone(), nil
}

// CurrentProject returns a copy of the open project, nil before Start.
func (c *Coordinator) CurrentProject() *domain.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// ProjectList returns the last merged listing.
func (c *Coordinator) ProjectList() []domain.ProjectMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneList(c.list)
}

// Status reports the coordinator's progress flags.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	st := Status{
		Loading:       c.loading,
		Saving:        c.saving,
		Authenticated: c.userID != "",
		RemoteEnabled: c.remote != nil,
	}
	remoteErr := c.lastRemoteErr
	c.mu.RUnlock()

	if c.up != nil {
		st.Syncing = c.up.Busy() || c.autoSyncPending()
		st.PendingUploads = c.up.Pending()
		lastOK, upErr := c.up.LastResult()
		if !lastOK.IsZero() {
			st.LastSyncedAt = &lastOK
		}
		if upErr != nil {
			remoteErr = upErr
		}
	}
	if remoteErr != nil {
		st.LastSyncError = remoteErr.Error()
	}
	return st
}

// Flush waits for queued uploads to finish.
func (c *Coordinator) Flush(ctx context.Context) error {
	if c.up == nil {
		return nil
	}
	return c.up.Flush(ctx)
}

// Close stops following auth changes, cancels a pending auto-sync and
// drains the uploader.
func (c *Coordinator) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.cancelAutoSync()

		waited := make(chan struct{})
		go func() {
			c.bg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}

		if c.up != nil {
			err = c.up.Close(ctx)
		}
	})
	return err
}

// remoteEnabled reports whether commands should try the remote store.
func (c *Coordinator) remoteEnabled() bool {
	if c.remote == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID != ""
}

func (c *Coordinator) remoteFailed(op string, err error) {
	c.logger.Warn("remote store unavailable, continuing locally", zap.String("operation", op), zap.Error(err))
	c.mu.Lock()
	c.lastRemoteErr = err
	c.mu.Unlock()
}

func (c *Coordinator) remoteOK() {
	c.mu.Lock()
	c.lastRemoteErr = nil
	c.mu.Unlock()
}

func (c *Coordinator) setCurrent(p *domain.Project) {
	c.mu.Lock()
	c.current = p.Clone()
	c.mu.Unlock()
}

// opened makes p the open project and lists it.
func (c *Coordinator) opened(p *domain.Project) {
	c.mu.Lock()
	c.current = p.Clone()
	c.upsertListLocked(p.Metadata())
	c.mu.Unlock()
}

func (c *Coordinator) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Coordinator) setSaving(v bool) {
	c.mu.Lock()
	c.saving = v
	c.mu.Unlock()
}

func (c *Coordinator) upsertListLocked(m domain.ProjectMetadata) {
	for i := range c.list {
		if c.list[i].ID == m.ID {
			c.list[i] = m
			repository.SortMetadata(c.list)
			return
		}
	}
	c.list = append(c.list, m)
	repository.SortMetadata(c.list)
}

func (c *Coordinator) removeListLocked(id string) {
	for i := range c.list {
		if c.list[i].ID == id {
			c.list = append(c.list[:i], c.list[i+1:]...)
			return
		}
	}
}

func cloneList(items []domain.ProjectMetadata) []domain.ProjectMetadata {
	out := make([]domain.ProjectMetadata, len(items))
	copy(out, items)
	return out
}
