package domain

import (
	"fmt"
	"strings"
)

// The functions below are the in-memory edit path. They never touch a store:
// each returns an updated copy with UpdatedAt bumped, and persistence is a
// separate explicit save.

// UpdateProjectCode replaces the three code buffers.
func UpdateProjectCode(p *Project, html, css, js string) *Project {
	out := p.Clone()
	out.HTML = html
	out.CSS = css
	out.JavaScript = js
	out.UpdatedAt = NextUpdatedAt(Now(), p.UpdatedAt)
	return out
}

// UpdateProjectName renames the project, falling back to the placeholder name.
func UpdateProjectName(p *Project, name string) *Project {
	out := p.Clone()
	out.Name = NormalizeName(name)
	out.UpdatedAt = NextUpdatedAt(Now(), p.UpdatedAt)
	return out
}

// UpdateExternalLibraries replaces the library list after validating every entry.
func UpdateExternalLibraries(p *Project, libs []ExternalLibrary) (*Project, error) {
	seen := make(map[string]struct{}, len(libs))
	for _, l := range libs {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate library id %q", ErrValidation, l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	out := p.Clone()
	out.ExternalLibraries = make([]ExternalLibrary, len(libs))
	copy(out.ExternalLibraries, libs)
	out.UpdatedAt = NextUpdatedAt(Now(), p.UpdatedAt)
	return out, nil
}

// UpdateSettings applies a partial settings change.
func UpdateSettings(p *Project, patch SettingsPatch) (*Project, error) {
	s, err := p.Settings.Apply(patch)
	if err != nil {
		return nil, err
	}
	out := p.Clone()
	out.Settings = s
	out.UpdatedAt = NextUpdatedAt(Now(), p.UpdatedAt)
	return out, nil
}

// ValidateForWrite checks the fields every store requires on a write.
func ValidateForWrite(p *Project) error {
	if p == nil {
		return fmt.Errorf("%w: project required", ErrValidation)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: project id required", ErrValidation)
	}
	return nil
}
