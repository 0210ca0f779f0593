package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/utils"
)

const supabaseTable = "projects"

// RestClient is the PostgREST entry point. *supabase.Client and
// *postgrest.Client both satisfy it.
type RestClient interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseRemote stores projects through Supabase's REST interface using a
// service key. Row ownership is enforced by explicit owner_id filters.
//
// postgrest-go does not take a context, so ctx is only checked before each request.
type SupabaseRemote struct {
	rest  RestClient
	users auth.UserSource
	now   func() time.Time
}

var _ RemoteStore = (*SupabaseRemote)(nil)

// NewSupabaseClient connects to a Supabase project.
func NewSupabaseClient(url, serviceKey string) (*supabase.Client, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

func NewSupabaseRemote(rest RestClient, users auth.UserSource) *SupabaseRemote {
	return &SupabaseRemote{rest: rest, users: users, now: domain.Now}
}

type supabaseRow struct {
	ID                string                   `json:"id"`
	OwnerID           string                   `json:"owner_id,omitempty"`
	Name              string                   `json:"name"`
	HTML              string                   `json:"html"`
	CSS               string                   `json:"css"`
	JavaScript        string                   `json:"javascript"`
	ExternalLibraries []domain.ExternalLibrary `json:"external_libraries"`
	Settings          domain.Settings          `json:"settings"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

type supabaseUpdate struct {
	Name              string                   `json:"name"`
	HTML              string                   `json:"html"`
	CSS               string                   `json:"css"`
	JavaScript        string                   `json:"javascript"`
	ExternalLibraries []domain.ExternalLibrary `json:"external_libraries"`
	Settings          domain.Settings          `json:"settings"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

type supabaseMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (row supabaseRow) project() *domain.Project {
	libs := row.ExternalLibraries
	if libs == nil {
		libs = []domain.ExternalLibrary{}
	}
	return &domain.Project{
		ID:                row.ID,
		Name:              row.Name,
		HTML:              row.HTML,
		CSS:               row.CSS,
		JavaScript:        row.JavaScript,
		ExternalLibraries: libs,
		Settings:          row.Settings,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (r *SupabaseRemote) begin(ctx context.Context) (string, error) {
	uid, err := ownerID(r.users)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", networkError("request", err)
	}
	return uid, nil
}

func (r *SupabaseRemote) CreateProject(ctx context.Context, name, html, css, js string, libs []domain.ExternalLibrary) (*domain.Project, error) {
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

func (r *SupabaseRemote) CreateProjectWithID(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	uid, err := r.begin(ctx)
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
	row := supabaseRow{
		ID:                in.ID,
		OwnerID:           uid,
		Name:              in.Name,
		HTML:              in.HTML,
		CSS:               in.CSS,
		JavaScript:        in.JavaScript,
		ExternalLibraries: in.ExternalLibraries,
		Settings:          in.Settings,
		CreatedAt:         in.CreatedAt,
		UpdatedAt:         in.UpdatedAt,
	}

	var out []supabaseRow
	_, err = r.rest.From(supabaseTable).
		Insert(row, false, "", "representation", "").
		ExecuteTo(&out)
	if err != nil {
		// PostgREST reports errors as text; ask the table whether the id is taken
		taken, lookupErr := r.idTaken(in.ID)
		if lookupErr == nil && taken {
			return nil, fmt.Errorf("%w: project %s already exists", domain.ErrConflict, in.ID)
		}
		return nil, networkError("create project", err)
	}
	if len(out) == 0 {
		return in, nil
	}
	return out[0].project(), nil
}

func (r *SupabaseRemote) SaveProject(ctx context.Context, p *domain.Project, base time.Time) (time.Time, error) {
	uid, err := r.begin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if err := domain.ValidateForWrite(p); err != nil {
		return time.Time{}, err
	}
	if !utils.IsProjectID(p.ID) {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p.ID)
	}

	libs := p.ExternalLibraries
	if libs == nil {
		libs = []domain.ExternalLibrary{}
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	q := r.rest.From(supabaseTable).
		Update(supabaseUpdate{
			Name:              domain.NormalizeName(p.Name),
			HTML:              p.HTML,
			CSS:               p.CSS,
			JavaScript:        p.JavaScript,
			ExternalLibraries: libs,
			Settings:          p.Settings,
			UpdatedAt:         updatedAt,
		}, "representation", "").
		Eq("id", p.ID).
		Eq("owner_id", uid).
		Is("deleted_at", "null")
	if !base.IsZero() {
		q = q.Eq("updated_at", timestamp(base))
	}

	var out []supabaseMeta
	if _, err := q.ExecuteTo(&out); err != nil {
		return time.Time{}, networkError("save project", err)
	}
	if len(out) > 0 {
		return out[0].UpdatedAt.UTC(), nil
	}
	if base.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p.ID)
	}

	exists, err := r.live(uid, p.ID)
	if err != nil {
		return time.Time{}, err
	}
	if exists {
		return time.Time{}, fmt.Errorf("%w: project %s changed remotely since %s", domain.ErrConflict, p.ID, timestamp(base))
	}
	return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p.ID)
}

func (r *SupabaseRemote) live(uid, id string) (bool, error) {
	var out []struct {
		ID string `json:"id"`
	}
	_, err := r.rest.From(supabaseTable).
		Select("id", "", false).
		Eq("id", id).
		Eq("owner_id", uid).
		Is("deleted_at", "null").
		ExecuteTo(&out)
	if err != nil {
		return false, networkError("look up project", err)
	}
	return len(out) > 0, nil
}

// idTaken looks for id in any state and under any owner.
func (r *SupabaseRemote) idTaken(id string) (bool, error) {
	var out []struct {
		ID string `json:"id"`
	}
	if _, err := r.rest.From(supabaseTable).Select("id", "", false).Eq("id", id).ExecuteTo(&out); err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

func (r *SupabaseRemote) LoadProject(ctx context.Context, id string) (*domain.Project, error) {
	uid, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	if !utils.IsProjectID(id) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	var out []supabaseRow
	_, err = r.rest.From(supabaseTable).
		Select(compactColumns(projectColumns), "", false).
		Eq("id", id).
		Eq("owner_id", uid).
		Is("deleted_at", "null").
		ExecuteTo(&out)
	if err != nil {
		return nil, networkError("load project", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return out[0].project(), nil
}

// ListProjects returns live projects, most recently updated first. Listings
// carry no preview so that html bodies stay on the server.
func (r *SupabaseRemote) ListProjects(ctx context.Context) ([]domain.ProjectMetadata, error) {
	uid, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}

	var rows []supabaseMeta
	_, err = r.rest.From(supabaseTable).
		Select("id,name,created_at,updated_at", "", false).
		Eq("owner_id", uid).
		Is("deleted_at", "null").
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, networkError("list projects", err)
	}

	out := make([]domain.ProjectMetadata, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ProjectMetadata{
			ID:        row.ID,
			Name:      row.Name,
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		})
	}
	SortMetadata(out)
	return out, nil
}

func (r *SupabaseRemote) DuplicateProject(ctx context.Context, id, newName string) (*domain.Project, error) {
	src, err := r.LoadProject(ctx, id)
	if err != nil {
		return nil, err
	}
	now := r.now()
	dup := src.Clone()
	dup.ID = utils.NewProjectID()
	dup.Name = DuplicateName(src.Name, newName)
	dup.CreatedAt = now
	dup.UpdatedAt = now
	return r.CreateProjectWithID(ctx, dup)
}

func (r *SupabaseRemote) RenameProject(ctx context.Context, id, name string) (*domain.Project, error) {
	src, err := r.LoadProject(ctx, id)
	if err != nil {
		return nil, err
	}
	uid, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}

	var out []supabaseRow
	_, err = r.rest.From(supabaseTable).
		Update(map[string]any{
			"name":       domain.NormalizeName(name),
			"updated_at": domain.NextUpdatedAt(r.now(), src.UpdatedAt),
		}, "representation", "").
		Eq("id", id).
		Eq("owner_id", uid).
		Is("deleted_at", "null").
		ExecuteTo(&out)
	if err != nil {
		return nil, networkError("rename project", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return out[0].project(), nil
}

// DeleteProject sets deleted_at on a live row.
func (r *SupabaseRemote) DeleteProject(ctx context.Context, id string) error {
	uid, err := r.begin(ctx)
	if err != nil {
		return err
	}
	if !utils.IsProjectID(id) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	var out []supabaseMeta
	_, err = r.rest.From(supabaseTable).
		Update(map[string]any{"deleted_at": r.now()}, "representation", "").
		Eq("id", id).
		Eq("owner_id", uid).
		Is("deleted_at", "null").
		ExecuteTo(&out)
	if err != nil {
		return networkError("delete project", err)
	}
	if len(out) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *SupabaseRemote) PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, networkError("purge deleted projects", err)
	}
	var out []supabaseMeta
	_, err := r.rest.From(supabaseTable).
		Delete("representation", "").
		Not("deleted_at", "is", "null").
		Lt("deleted_at", timestamp(olderThan)).
		ExecuteTo(&out)
	if err != nil {
		return 0, networkError("purge deleted projects", err)
	}
	return int64(len(out)), nil
}

// Ping selects at most one id.
func (r *SupabaseRemote) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return networkError("ping", err)
	}
	var out []struct {
		ID string `json:"id"`
	}
	if _, err := r.rest.From(supabaseTable).Select("id", "", false).Limit(1, "").ExecuteTo(&out); err != nil {
		return networkError("ping", err)
	}
	return nil
}

func compactColumns(cols string) string {
	return strings.Join(strings.Fields(cols), "")
}
