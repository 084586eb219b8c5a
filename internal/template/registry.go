package template

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

// TemplateExt is the file name suffix of encoding templates.
const TemplateExt = ".template"

// Registry maps lowercased file extensions to encoding templates.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry builds a registry from already parsed templates keyed by extension.
func NewRegistry(templates map[string]*Template) *Registry {
	r := &Registry{templates: make(map[string]*Template, len(templates))}
	for ext, t := range templates {
		r.templates[strings.ToLower(ext)] = t
	}
	return r
}

// LoadRegistry parses every <ext>.template file in dir. The key of each template is the
// file name up to its first '.', lowercased. Subdirectories and other files are ignored.
//
// dir must contain unknown.template, which is used for files whose extension has no
// template of its own.
func LoadRegistry(dir string, argv []string, logger *slog.Logger) (*Registry, error) {
	const op = "template.LoadRegistry"
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, veo.WrapNotFoundError(err, op, fmt.Sprintf("encoding template directory '%s' does not exist", dir))
		}
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("failed to read encoding template directory '%s'", dir))
	}

	r := &Registry{templates: make(map[string]*Template)}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, TemplateExt) {
			continue
		}
		i := strings.IndexByte(name, '.')
		if i == 0 {
			continue
		}
		t, err := ParseFile(filepath.Join(dir, name), argv, logger)
		if err != nil {
			return nil, err
		}
		r.templates[strings.ToLower(name[:i])] = t
		logger.Debug("loaded encoding template",
			slog.String("extension", strings.ToLower(name[:i])),
			slog.Int("fragments", len(t.Fragments)))
	}

	if _, ok := r.templates[UnknownEncoding]; !ok {
		return nil, veo.NewNotFoundError(op,
			fmt.Sprintf("encoding template directory '%s' has no %s%s", dir, UnknownEncoding, TemplateExt))
	}
	return r, nil
}

// Lookup returns the template for a lowercased extension.
func (r *Registry) Lookup(ext string) (*Template, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.templates[ext]
	return t, ok
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.templates)
}
