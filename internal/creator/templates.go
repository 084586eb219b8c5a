package creator

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/information-sharing-networks/veogen/internal/template"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

// Template directory layout.
const (
	RecordTemplateFile   = "record.template"
	DocumentTemplateFile = "document.template"
	FileTemplateFile     = "file.template"
	EncodingTemplateDir  = "encodingTemplates"
)

// Templates are the templates a Creator renders metadata with. Record, Document and
// File may be nil, in which case rows needing them are skipped.
type Templates struct {
	Record    *template.Template
	Document  *template.Template
	File      *template.Template
	Encodings *template.Registry
}

// LoadTemplates reads the templates in dir. The encoding template directory, and its
// unknown template, must exist. argv supplies the values of argument substitutions.
func LoadTemplates(dir string, argv []string, logger *slog.Logger) (*Templates, error) {
	if logger == nil {
		logger = slog.Default()
	}

	encodings, err := template.LoadRegistry(filepath.Join(dir, EncodingTemplateDir), argv, logger)
	if err != nil {
		return nil, err
	}
	t := &Templates{Encodings: encodings}

	for _, tf := range []struct {
		name string
		dest **template.Template
	}{
		{RecordTemplateFile, &t.Record},
		{DocumentTemplateFile, &t.Document},
		{FileTemplateFile, &t.File},
	} {
		parsed, err := template.ParseFile(filepath.Join(dir, tf.name), argv, logger)
		var veoErr *veo.Error
		if errors.As(err, &veoErr) && veoErr.Code() == veo.ErrCodeNotFound {
			logger.Debug("optional template not present", slog.String("template", tf.name))
			continue
		}
		if err != nil {
			return nil, err
		}
		*tf.dest = parsed
	}

	logger.Info("templates loaded",
		slog.String("dir", dir),
		slog.Bool("record", t.Record != nil),
		slog.Bool("document", t.Document != nil),
		slog.Bool("file", t.File != nil),
		slog.Int("encodings", encodings.Len()))
	return t, nil
}
