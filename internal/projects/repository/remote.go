package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
)

// RemoteStore is the authenticated cloud copy of a user's projects. Every
// call is scoped to the user the injected auth.UserSource reports and fails
// with domain.ErrAuthRequired when nobody is signed in. Deletes are soft.
type RemoteStore interface {
	CreateProject(ctx context.Context, name, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error)
	// CreateProjectWithID inserts p keeping its id and timestamps. An existing
	// row with that id, live or tombstoned, yields domain.ErrConflict.
	CreateProjectWithID(ctx context.Context, p *domain.Project) (*domain.Project, error)
	// SaveProject updates an existing live row and returns the stored
	// updated_at. A non-zero base adds the precondition updated_at = base.
	// No row -> domain.ErrNotFound; row present but base stale -> domain.ErrConflict.
	SaveProject(ctx context.Context, p *domain.Project, base time.Time) (time.Time, error)
	LoadProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.ProjectMetadata, error)
	DuplicateProject(ctx context.Context, id, newName string) (*domain.Project, error)
	RenameProject(ctx context.Context, id, name string) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	// PurgeDeleted hard-deletes tombstones older than olderThan for every owner.
	PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error)
	Ping(ctx context.Context) error
}

const uniqueViolation = "23505"

func ownerID(users auth.UserSource) (string, error) {
	if users == nil {
		return "", domain.ErrAuthRequired
	}
	uid, ok := users.CurrentUserID()
	if !ok {
		return "", domain.ErrAuthRequired
	}
	return uid, nil
}

// isUniqueViolation understands both drivers PostgresRemote can run on.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// networkError wraps a transport or server failure. Context cancellation is
// kept visible through the wrap chain.
func networkError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrNetwork, op, err)
}

func stampNew(p *domain.Project, now time.Time) *domain.Project {
	cp := p.Clone()
	cp.Name = domain.NormalizeName(cp.Name)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	if cp.ExternalLibraries == nil {
		cp.ExternalLibraries = []domain.ExternalLibrary{}
	}
	if cp.Settings.Version == 0 {
		cp.Settings = domain.DefaultSettings()
	}
	return cp
}
