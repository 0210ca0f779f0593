package service

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/utils"
)

// Seed is the content of the project created on a cold start.
type Seed struct {
	HTML       string
	CSS        string
	JavaScript string
	Libraries  []domain.ExternalLibrary
}

// DefaultSeed returns the starter template.
func DefaultSeed() Seed {
	return Seed{
		HTML:       "<h1>Hello, playground!</h1>\n<p>Edit the HTML, CSS and JavaScript panels to get started.</p>\n",
		CSS:        "body {\n  font-family: system-ui, sans-serif;\n  margin: 2rem;\n}\n\nh1 {\n  color: #4f46e5;\n}\n",
		JavaScript: "console.log('Ready to build something great');\n",
	}
}

// seedFile is the YAML form of a starter template:
//
//	html: |
//	  <h1>Hi</h1>
//	css: "h1 { color: red; }"
//	javascript: ""
//	libraries:
//	  - name: Tailwind
//	    url: https://cdn.tailwindcss.com
//	    type: js
type seedFile struct {
	HTML       *string       `yaml:"html"`
	CSS        *string       `yaml:"css"`
	JavaScript *string       `yaml:"javascript"`
	Libraries  []seedLibrary `yaml:"libraries"`
}

type seedLibrary struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// LoadSeed reads a starter template. Keys the file omits keep the
// DefaultSeed content. An empty path returns DefaultSeed.
func LoadSeed(path string) (Seed, error) {
	seed := DefaultSeed()
	if strings.TrimSpace(path) == "" {
		return seed, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed template: %w", err)
	}
	return parseSeed(b, seed)
}

func parseSeed(b []byte, seed Seed) (Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Seed{}, fmt.Errorf("%w: parse seed template: %w", domain.ErrValidation, err)
	}

	if f.HTML != nil {
		seed.HTML = *f.HTML
	}
	if f.CSS != nil {
		seed.CSS = *f.CSS
	}
	if f.JavaScript != nil {
		seed.JavaScript = *f.JavaScript
	}

	now := domain.Now()
	for _, l := range f.Libraries {
		lib := domain.ExternalLibrary{
			ID:          utils.NewLibraryID(),
			Name:        strings.TrimSpace(l.Name),
			URL:         strings.TrimSpace(l.URL),
			Type:        l.Type,
			Description: l.Description,
			AddedAt:     now,
		}
		if lib.Type == "" {
			lib.Type = domain.InferLibraryType(lib.URL)
		}
		if err := lib.Validate(); err != nil {
			return Seed{}, fmt.Errorf("seed template: %w", err)
		}
		seed.Libraries = append(seed.Libraries, lib)
	}
	return seed, nil
}
