package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Library types.
const (
	LibraryCSS = "css"
	LibraryJS  = "js"
)

// ExternalLibrary is a CDN stylesheet or script injected into the preview.
type ExternalLibrary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

// InferLibraryType guesses the library type from the URL path extension.
func InferLibraryType(rawURL string) string {
	u, err := url.Parse(rawURL)
	p := rawURL
	if err == nil {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".css") {
		return LibraryCSS
	}
	return LibraryJS
}

// Validate checks a descriptor before it is attached to a project.
func (l ExternalLibrary) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("%w: library id required", ErrValidation)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: library name required", ErrValidation)
	}
	u, err := url.Parse(l.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: invalid library url %q", ErrValidation, l.URL)
	}
	if l.Type != LibraryCSS && l.Type != LibraryJS {
		return fmt.Errorf("%w: unknown library type %q", ErrValidation, l.Type)
	}
	return nil
}
