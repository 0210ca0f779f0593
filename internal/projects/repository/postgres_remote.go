package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/utils"
)

const projectColumns = `id, name, html, css, javascript, external_libraries, settings, created_at, updated_at`

// PostgresRemote stores projects in a PostgreSQL projects table, one row per
// project, scoped by owner_id.
type PostgresRemote struct {
	db    *sql.DB
	users auth.UserSource
	now   func() time.Time
}

var _ RemoteStore = (*PostgresRemote)(nil)

// NewPostgresRemote creates a remote store over db. The owner of every call
// is read from users.
func NewPostgresRemote(db *sql.DB, users auth.UserSource) *PostgresRemote {
	return &PostgresRemote{db: db, users: users, now: domain.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p        domain.Project
		libsJSON []byte
		setJSON  []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.HTML, &p.CSS, &p.JavaScript, &libsJSON, &setJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ExternalLibraries = []domain.ExternalLibrary{}
	if len(libsJSON) > 0 {
		if err := json.Unmarshal(libsJSON, &p.ExternalLibraries); err != nil {
			return nil, fmt.Errorf("decode external_libraries: %w", err)
		}
	}
	p.Settings = domain.DefaultSettings()
	if len(setJSON) > 0 {
		if err := json.Unmarshal(setJSON, &p.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func encodeJSONColumns(p *domain.Project) ([]byte, []byte, error) {
	libs := p.ExternalLibraries
	if libs == nil {
		libs = []domain.ExternalLibrary{}
	}
	libsJSON, err := json.Marshal(libs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode external_libraries: %w", domain.ErrValidation, err)
	}
	setJSON, err := json.Marshal(p.Settings)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode settings: %w", domain.ErrValidation, err)
	}
	return libsJSON, setJSON, nil
}

// CreateProject allocates a new id and inserts the project.
func (r *PostgresRemote) CreateProject(ctx context.Context, name, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error) {
	return r.CreateProjectWithID(ctx, &domain.Project{
		ID:                utils.NewProjectID(),
		Name:              name,
		HTML:              html,
		CSS:               css,
		JavaScript:        js,
		ExternalLibraries: libs,
		Settings:          domain.DefaultSettings(),
	})
}

func (r *PostgresRemote) CreateProjectWithID(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateForWrite(p); err != nil {
		return nil, err
	}
	if !utils.IsProjectID(p.ID) {
		return nil, fmt.Errorf("%w: project id %q is not a uuid", domain.ErrValidation, p.ID)
	}

	in := stampNew(p, r.now())
	libsJSON, setJSON, err := encodeJSONColumns(in)
	if err != nil {
		return nil, err
	}

	const q = `
INSERT INTO projects (id, owner_id, name, html, css, javascript, external_libraries, settings, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + projectColumns + `;
`
	out, err := scanProject(r.db.QueryRowContext(ctx, q,
		in.ID, uid, in.Name, in.HTML, in.CSS, in.JavaScript, libsJSON, setJSON, in.CreatedAt, in.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: project %s already exists", domain.ErrConflict, in.ID)
		}
		return nil, networkError("create project", err)
	}
	return out, nil
}

func (r *PostgresRemote) SaveProject(ctx context.Context, p *domain.Project, base time.Time) (time.Time, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return time.Time{}, err
	}
	if err := domain.ValidateForWrite(p); err != nil {
		return time.Time{}, err
	}
	if !utils.IsProjectID(p.ID) {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p.ID)
	}

	libsJSON, setJSON, err := encodeJSONColumns(p)
	if err != nil {
		return time.Time{}, err
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	q := `
UPDATE projects
SET name = $3, html = $4, css = $5, javascript = $6,
    external_libraries = $7, settings = $8, updated_at = $9
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	args := []any{p.ID, uid, domain.NormalizeName(p.Name), p.HTML, p.CSS, p.JavaScript, libsJSON, setJSON, updatedAt}
	if !base.IsZero() {
		q += ` AND updated_at = $10`
		args = append(args, base)
	}
	q += `
RETURNING updated_at;`

	var stored time.Time
	err = r.db.QueryRowContext(ctx, q, args...).Scan(&stored)
	if err == nil {
		return stored.UTC(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, networkError("save project", err)
	}
	if base.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p.ID)
	}

	// the precondition or the row itself is missing; find out which
	exists, err := r.exists(ctx, uid, p.ID)
	if err != nil {
		return time.Time{}, err
	}
	if exists {
		return time.Time{}, fmt.Errorf("%w: project %s changed remotely since %s", domain.ErrConflict, p.ID, base.Format(time.RFC3339Nano))
	}
	return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p.ID)
}

func (r *PostgresRemote) exists(ctx context.Context, uid, id string) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM projects
    WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
);
`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, id, uid).Scan(&ok); err != nil {
		return false, networkError("look up project", err)
	}
	return ok, nil
}

func (r *PostgresRemote) LoadProject(ctx context.Context, id string) (*domain.Project, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return nil, err
	}
	if !utils.IsProjectID(id) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	const q = `
SELECT ` + projectColumns + `
FROM projects
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, networkError("load project", err)
	}
	return p, nil
}

// ListProjects returns all live projects of the current user, most recently updated first.
func (r *PostgresRemote) ListProjects(ctx context.Context) ([]domain.ProjectMetadata, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return nil, err
	}

	const q = `
SELECT id, name, created_at, updated_at, left(html, 120)
FROM projects
WHERE owner_id = $1 AND deleted_at IS NULL
ORDER BY updated_at DESC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, uid)
	if err != nil {
		return nil, networkError("list projects", err)
	}
	defer rows.Close()

	out := make([]domain.ProjectMetadata, 0, 16)
	for rows.Next() {
		var (
			m    domain.ProjectMetadata
			head string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt, &head); err != nil {
			return nil, networkError("list projects", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		m.UpdatedAt = m.UpdatedAt.UTC()
		m.Preview = domain.Preview(head)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, networkError("list projects", err)
	}
	return out, nil
}

// DuplicateProject copies a live row under a new id in a single statement.
func (r *PostgresRemote) DuplicateProject(ctx context.Context, id, newName string) (*domain.Project, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return nil, err
	}
	if !utils.IsProjectID(id) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	const q = `
INSERT INTO projects (id, owner_id, name, html, css, javascript, external_libraries, settings, created_at, updated_at)
SELECT $1, owner_id, COALESCE(NULLIF($2, ''), name || ' (Copy)'), html, css, javascript, external_libraries, settings, $3, $3
FROM projects
WHERE id = $4 AND owner_id = $5 AND deleted_at IS NULL
RETURNING ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, utils.NewProjectID(), strings.TrimSpace(newName), r.now(), id, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, networkError("duplicate project", err)
	}
	return p, nil
}

func (r *PostgresRemote) RenameProject(ctx context.Context, id, name string) (*domain.Project, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return nil, err
	}
	if !utils.IsProjectID(id) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	const q = `
UPDATE projects
SET name = $3, updated_at = GREATEST($4, updated_at)
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
RETURNING ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id, uid, domain.NormalizeName(name), r.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, networkError("rename project", err)
	}
	return p, nil
}

// DeleteProject marks a project as deleted (soft delete).
func (r *PostgresRemote) DeleteProject(ctx context.Context, id string) error {
	uid, err := ownerID(r.users)
	if err != nil {
		return err
	}
	if !utils.IsProjectID(id) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	const q = `
UPDATE projects
SET deleted_at = $3
WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL;
`
	result, err := r.db.ExecContext(ctx, q, id, uid, r.now())
	if err != nil {
		return networkError("delete project", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return networkError("delete project", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRemote) PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error) {
	const q = `
DELETE FROM projects
WHERE deleted_at IS NOT NULL AND deleted_at < $1;
`
	result, err := r.db.ExecContext(ctx, q, olderThan)
	if err != nil {
		return 0, networkError("purge deleted projects", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, networkError("purge deleted projects", err)
	}
	return n, nil
}

func (r *PostgresRemote) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return networkError("ping", err)
	}
	return nil
}
