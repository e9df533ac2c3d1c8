// Package starter supplies the initial buffer contents of new workspaces.
//
// Templates ship embedded (default, blank, counter) and more can be loaded
// from a directory of YAML or TOML files. A template's contents become the
// workspace baselines, so an untouched workspace is never "modified".
package starter

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

// DefaultName is the template used when none is requested
const DefaultName = "default"

// Pattern selects template files under a templates directory
const Pattern = "**/*.{yaml,yml,toml}"

var ErrUnknownTemplate = errors.New("unknown template")

//go:embed templates
var builtin embed.FS

// Template is a named set of initial buffer contents
type Template struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Description string `yaml:"description" toml:"description" json:"description"`
	Markup      string `yaml:"markup" toml:"markup" json:"-"`
	Style       string `yaml:"style" toml:"style" json:"-"`
	Script      string `yaml:"script" toml:"script" json:"-"`
}

// Snapshot returns the template as buffer contents
func (t Template) Snapshot() buffer.Snapshot {
	return buffer.Snapshot{
		buffer.Markup: t.Markup,
		buffer.Style:  t.Style,
		buffer.Script: t.Script,
	}
}

// Registry holds templates by name
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry returns a registry holding the embedded templates
func NewRegistry() (*Registry, error) {
	r := &Registry{templates: make(map[string]Template)}

	err := fs.WalkDir(builtin, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtin.ReadFile(p)
		if err != nil {
			return err
		}
		t, err := Parse(path.Base(p), data)
		if err != nil {
			return err
		}
		r.templates[t.Name] = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load builtin templates: %w", err)
	}
	if _, ok := r.templates[DefaultName]; !ok {
		return nil, fmt.Errorf("%w: builtin %q missing", ErrUnknownTemplate, DefaultName)
	}
	return r, nil
}

// LoadDir adds every template file under dir matching Pattern. Files that
// fail to parse are collected into the returned error; the rest still load.
// A template with an existing name replaces it.
func (r *Registry) LoadDir(ctx context.Context, dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("templates dir: %w", err)
	}

	var (
		mu     sync.Mutex
		loaded []Template
		errs   []error
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(Pattern, filepath.ToSlash(rel)); !ok {
			return nil
		}

		data, err := os.ReadFile(p)
		if err == nil {
			var t Template
			t, err = Parse(filepath.Base(p), data)
			if err == nil {
				mu.Lock()
				loaded = append(loaded, t)
				mu.Unlock()
				return nil
			}
		}

		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", rel, err))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}

	// Walk order is nondeterministic; apply in path-independent name order
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })

	r.mu.Lock()
	for _, t := range loaded {
		r.templates[t.Name] = t
	}
	r.mu.Unlock()

	return len(loaded), errors.Join(errs...)
}

// Get returns the named template
func (r *Registry) Get(name string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Default returns the default template
func (r *Registry) Default() Template {
	t, _ := r.Get(DefaultName)
	return t
}

// Resolve returns the named template, or the default for an empty name
func (r *Registry) Resolve(name string) (Template, error) {
	if name == "" {
		return r.Default(), nil
	}
	return r.Get(name)
}

// List returns all templates sorted by name
func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse decodes a template file by extension. A missing name falls back to
// the file name without extension.
func Parse(filename string, data []byte) (Template, error) {
	var t Template

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Template{}, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &t); err != nil {
			return Template{}, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return Template{}, fmt.Errorf("unsupported template file %q", filename)
	}

	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return t, nil
}
