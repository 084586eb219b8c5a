// Package creator builds a batch of VEOs from the rows of a data source.
//
// Each VEO starts at a row of kind record, file or simple record; column 2 of that row
// names the VEO file. A record row is followed by its document rows, and each document
// row by the encoding rows naming the files to include (column 2). A simple record row
// names its single file in column 3.
package creator

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/veogen/internal/generator"
	"github.com/information-sharing-networks/veogen/internal/manifest"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

type Config struct {
	// OutputDir is prepended to relative VEO file names.
	OutputDir string

	Hash       crypto.Hash
	RevisionID int

	// Signers each add a signature block. The lock signature is made by the first.
	Signers []generator.Credential
}

// Summary counts what a Build did.
type Summary struct {
	Built   int
	Skipped int
}

type Creator struct {
	templates *Templates
	cfg       Config
	gen       *generator.Generator
	logger    *slog.Logger
	runID     uuid.UUID
	now       func() time.Time
	manifest  *manifest.Manifest
}

type Option func(*Creator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Creator) { c.logger = logger }
}

// WithClock sets the source of the dates written into VEOs.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) { c.now = now }
}

func WithRunID(id uuid.UUID) Option {
	return func(c *Creator) { c.runID = id }
}

// WithManifest records every VEO built in m.
func WithManifest(m *manifest.Manifest) Option {
	return func(c *Creator) { c.manifest = m }
}

func New(templates *Templates, cfg Config, opts ...Option) (*Creator, error) {
	const op = "creator.New"

	if templates == nil {
		return nil, veo.NewArgumentError(op, "templates are nil")
	}
	if len(cfg.Signers) == 0 {
		return nil, veo.NewArgumentError(op, "at least one signer is required")
	}
	if cfg.RevisionID == 0 {
		cfg.RevisionID = 1
	}
	if cfg.RevisionID < 1 {
		return nil, veo.NewArgumentError(op, "revision must be a positive integer")
	}
	if cfg.Hash == 0 {
		cfg.Hash = generator.DefaultHash
	}

	c := &Creator{
		templates: templates,
		cfg:       cfg,
		logger:    slog.Default(),
		runID:     uuid.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("run_id", c.runID.String()))
	c.gen = generator.New(templates.Encodings, generator.WithClock(c.now), generator.WithLogger(c.logger))
	return c, nil
}

func (c *Creator) RunID() uuid.UUID { return c.runID }

// Build creates a VEO for each VEO-starting row of ds. Rows that cannot start a VEO are
// logged and skipped. The first error stops the run; the VEO being built is removed.
func (c *Creator) Build(ctx context.Context, ds veo.DataSource) (Summary, error) {
	const op = "creator.Build"

	var sum Summary
	if ds == nil {
		return sum, veo.NewArgumentError(op, "data source is nil")
	}

	seqNo := 1
	for !ds.AtEnd() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		switch kind := ds.RowKind(); kind {
		case veo.RowRecord, veo.RowFile, veo.RowSimpleRecord:
			built, err := c.buildVEO(seqNo, kind, ds)
			seqNo++
			if err != nil {
				return sum, err
			}
			if built {
				sum.Built++
			} else {
				sum.Skipped++
			}
		default:
			c.logger.Error("out of sequence data row, expecting a file, record or simple record",
				slog.String("kind", kind.String()),
				slog.String("column_1", ds.Column(1)),
				slog.String("column_2", ds.Column(2)))
			ds.AdvanceRow()
			sum.Skipped++
		}
	}

	if e, ok := ds.(interface{ Err() error }); ok && e.Err() != nil {
		return sum, veo.WrapIOError(e.Err(), op, "failed reading data")
	}
	return sum, nil
}

// buildVEO builds one VEO starting at the current row and leaves ds on the row after
// it. It returns false if the VEO was skipped for want of a template.
func (c *Creator) buildVEO(seqNo int, kind veo.RowKind, ds veo.DataSource) (bool, error) {
	const op = "creator.buildVEO"

	name := ds.Column(2)
	if name == "" {
		return false, veo.NewArgumentError(op, fmt.Sprintf("no VEO file name in column 2 of %s row (VEO %d)", kind, seqNo))
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.cfg.OutputDir, name)
	}
	logger := c.logger.With(slog.String("veo", path), slog.Int("seq_no", seqNo))

	if missing := c.missingTemplate(kind); missing != "" {
		logger.Error("no template for row, VEO skipped",
			slog.String("kind", kind.String()),
			slog.String("template", missing))
		c.skip(kind, ds)
		return false, nil
	}

	logger.Debug("building VEO", slog.String("kind", kind.String()))

	err := c.writeVEO(path, seqNo, kind, ds)
	if err != nil {
		c.gen.CleanUpAfterError()
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("failed to remove incomplete VEO", slog.String("error", rmErr.Error()))
		}
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, veo.WrapIOError(err, op, fmt.Sprintf("cannot stat VEO '%s'", path))
	}
	logger.Info("VEO built",
		slog.String("kind", kind.String()),
		slog.Int64("bytes", info.Size()))

	if c.manifest != nil {
		if err := c.manifest.Add(path, seqNo, kind.String()); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (c *Creator) missingTemplate(kind veo.RowKind) string {
	switch kind {
	case veo.RowFile:
		if c.templates.File == nil {
			return FileTemplateFile
		}
	case veo.RowRecord, veo.RowSimpleRecord:
		if c.templates.Record == nil {
			return RecordTemplateFile
		}
		if c.templates.Document == nil {
			return DocumentTemplateFile
		}
	}
	return ""
}

// skip moves past a VEO's rows: a record takes its document and encoding rows with it.
func (c *Creator) skip(kind veo.RowKind, ds veo.DataSource) {
	next := ds.AdvanceRow()
	if kind != veo.RowRecord {
		return
	}
	for next == veo.RowDocument || next == veo.RowEncoding {
		next = ds.AdvanceRow()
	}
}

func (c *Creator) writeVEO(path string, seqNo int, kind veo.RowKind, ds veo.DataSource) error {
	g := c.gen
	if err := g.StartVEO(path, seqNo, c.cfg.RevisionID); err != nil {
		return err
	}
	for _, signer := range c.cfg.Signers {
		if err := g.AddSignatureBlock(signer, c.cfg.Hash); err != nil {
			return err
		}
	}
	if err := g.AddLockSignatureBlock(1, c.cfg.Signers[0], c.cfg.Hash); err != nil {
		return err
	}

	var err error
	switch kind {
	case veo.RowRecord:
		err = c.writeRecord(ds)
	case veo.RowFile:
		err = g.AddFile(c.templates.File, ds)
		ds.AdvanceRow()
	case veo.RowSimpleRecord:
		err = g.AddSimpleRecord(c.templates.Record, c.templates.Document, ds)
		ds.AdvanceRow()
	}
	if err != nil {
		return err
	}
	return g.EndVEO()
}

func (c *Creator) writeRecord(ds veo.DataSource) error {
	g := c.gen
	if err := g.StartRecord(c.templates.Record, ds); err != nil {
		return err
	}
	ds.AdvanceRow()

	for ds.RowKind() == veo.RowDocument {
		if err := g.StartDocument(c.templates.Document, ds); err != nil {
			return err
		}
		ds.AdvanceRow()

		for ds.RowKind() == veo.RowEncoding {
			if err := g.AddEncoding(ds.Column(2)); err != nil {
				return err
			}
			ds.AdvanceRow()
		}
		if err := g.EndDocument(); err != nil {
			return err
		}
	}
	return g.EndRecord()
}
