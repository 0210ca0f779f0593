package domain

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultProjectName is used whenever a project would otherwise be saved without a name.
const DefaultProjectName = "Untitled Project"

const previewLength = 120

// Project is a single playground document: the three code buffers plus the
// libraries and editor settings that go with them. It is storage-agnostic and
// shared by the local and remote repositories, the coordinator and the HTTP layer.
type Project struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	HTML              string            `json:"html"`
	CSS               string            `json:"css"`
	JavaScript        string            `json:"javascript"`
	ExternalLibraries []ExternalLibrary `json:"externalLibraries"`
	Settings          Settings          `json:"settings"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// ProjectMetadata is the listing projection of a Project. It never carries code bodies.
type ProjectMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Preview   string    `json:"preview,omitempty"`
}

// UnmarshalJSON fills in default settings for records written before
// settings existed.
func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	a := alias{Settings: DefaultSettings()}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Project(a)
	return nil
}

// Now returns the current time in the precision every backend can store.
// PostgreSQL keeps microseconds, so anything finer would not round-trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NextUpdatedAt returns the timestamp for a new write of a record last
// written at prev. It never goes backwards, even if the wall clock does.
func NextUpdatedAt(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}

// NormalizeName trims the name and falls back to DefaultProjectName.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultProjectName
	}
	return name
}

// Metadata projects p into its listing form.
func (p *Project) Metadata() ProjectMetadata {
	return ProjectMetadata{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Preview:   Preview(p.HTML),
	}
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	if p.ExternalLibraries != nil {
		cp.ExternalLibraries = make([]ExternalLibrary, len(p.ExternalLibraries))
		copy(cp.ExternalLibraries, p.ExternalLibraries)
	}
	return &cp
}

// Preview collapses whitespace in html and cuts it to a short listing snippet.
func Preview(html string) string {
	s := strings.Join(strings.Fields(html), " ")
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	r := []rune(s)
	return string(r[:previewLength])
}
