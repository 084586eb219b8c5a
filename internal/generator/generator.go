// Package generator assembles VEOs: signed VERS V2 XML archival objects.
//
// A Generator writes one VEO at a time through a fixed sequence of calls:
//
//	g.StartVEO(path, seqNo, revision)
//	g.AddSignatureBlock(signer, crypto.SHA256)   // one or more
//	g.AddLockSignatureBlock(1, signer, crypto.SHA256)
//	g.StartRecord(recordTemplate, row)           // or AddFile, AddSimpleRecord, IncludeSignedObject
//	g.StartDocument(documentTemplate, row)
//	g.AddEncoding("report.pdf")                  // one or more
//	g.EndDocument()                              // StartDocument may follow again
//	g.EndRecord()
//	g.EndVEO()
//
// The signatures are calculated while the vers:SignedObject is written. Space for
// each signature is reserved when its block is written and the Base64 value is
// written into that space by EndVEO. Every call checks the sequence before doing
// anything; after any other error the caller must call CleanUpAfterError before
// starting the next VEO.
//
// A Generator is not safe for concurrent use.
package generator

import (
	"crypto"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/information-sharing-networks/veogen/internal/b64"
	"github.com/information-sharing-networks/veogen/internal/datasource"
	"github.com/information-sharing-networks/veogen/internal/template"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

type Generator struct {
	registry *template.Registry
	logger   *slog.Logger
	now      func() time.Time

	state State
	out   *output

	seqNo      int
	revisionID int
	documentID int
	encodingID int

	// nextSignatureID is the id the next signature block will get
	nextSignatureID int
	signatures      []*signatureContext
	lock            *signatureContext
	lockTarget      int

	// capturing is set while the signed object is being written
	capturing bool
	filtered  []byte
}

type Option func(*Generator)

// WithClock sets the source of the dates written into VEOs.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New creates a Generator that takes encoding templates from registry.
// registry may be nil, in which case AddEncoding and encoding substitutions fail.
func New(registry *template.Registry, opts ...Option) *Generator {
	g := &Generator{
		registry: registry,
		logger:   slog.Default(),
		now:      time.Now,
		state:    StateNotStarted,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) State() State { return g.state }

func (g *Generator) SequenceNo() int { return g.seqNo }

// check validates the sequence for op and, when it is legal, moves to the next state.
func (g *Generator) check(op operation) error {
	next, msg := transition(op, g.state)
	if msg != "" {
		return veo.NewStateError(op.String(), msg)
	}
	g.state = next
	return nil
}

// checkOnly validates the sequence for op without changing state.
func (g *Generator) checkOnly(op operation) error {
	if _, msg := transition(op, g.state); msg != "" {
		return veo.NewStateError(op.String(), msg)
	}
	return nil
}

// emit is the only path by which bytes reach the VEO. While capturing, everything
// except tab, LF, CR and space is also fed to each signature.
func (g *Generator) emit(p []byte) error {
	if _, err := g.out.Write(p); err != nil {
		return veo.WrapIOError(err, "generator.emit", "failed writing to VEO")
	}
	if !g.capturing || len(g.signatures) == 0 {
		return nil
	}
	g.filtered = g.filtered[:0]
	for _, b := range p {
		if !veo.IsSignatureWhitespace(b) {
			g.filtered = append(g.filtered, b)
		}
	}
	for _, sig := range g.signatures {
		sig.digest.Write(g.filtered)
	}
	return nil
}

func (g *Generator) emitString(parts ...string) error {
	for _, s := range parts {
		if err := g.emit([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) date() string {
	return veo.FormatDateTime(g.now())
}

// StartVEO creates the file at path and begins a new VEO in it.
func (g *Generator) StartVEO(path string, seqNo, revisionID int) error {
	if err := g.checkOnly(opStartVEO); err != nil {
		return err
	}
	if revisionID < 1 {
		return veo.NewArgumentError(opStartVEO.String(), "revisionId must be a positive integer")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return veo.WrapIOError(err, opStartVEO.String(), fmt.Sprintf("output VEO file '%s' cannot be opened for writing", path))
	}
	return g.start(f, seqNo, revisionID)
}

// StartVEOSink begins a new VEO written to sink. The generator closes sink in EndVEO
// or CleanUpAfterError.
func (g *Generator) StartVEOSink(sink Sink, seqNo, revisionID int) error {
	if err := g.checkOnly(opStartVEO); err != nil {
		return err
	}
	if revisionID < 1 {
		return veo.NewArgumentError(opStartVEO.String(), "revisionId must be a positive integer")
	}
	if sink == nil {
		return veo.NewArgumentError(opStartVEO.String(), "sink is nil")
	}
	return g.start(sink, seqNo, revisionID)
}

func (g *Generator) start(sink Sink, seqNo, revisionID int) error {
	_ = g.check(opStartVEO)

	// left open by a failed EndVEO
	if g.out != nil {
		_ = g.out.discard()
	}
	g.out = newOutput(sink)
	g.seqNo = seqNo
	g.revisionID = revisionID
	g.documentID = 0
	g.encodingID = 0
	g.nextSignatureID = 1
	g.signatures = nil
	g.lock = nil
	g.lockTarget = 0
	g.capturing = false

	return g.emitString(veoPreamble)
}

// AddSignatureBlock writes a signature block for signer and starts a signature over
// the signed object. The blocks are numbered from 1 in the order they are added.
func (g *Generator) AddSignatureBlock(signer Credential, h crypto.Hash) error {
	op := opAddSignatureBlock.String()
	if err := g.checkOnly(opAddSignatureBlock); err != nil {
		return err
	}
	key, alg, certs, err := prepareSigner(op, signer, h)
	if err != nil {
		return err
	}
	_ = g.check(opAddSignatureBlock)

	id := g.nextSignatureID
	g.nextSignatureID++

	ctx := newSignatureContext(id, alg, key)
	if err := g.emitString(signatureBlockStart(g.revisionID, id)); err != nil {
		return err
	}
	if err := g.writeSignatureBlock(ctx, signer, certs, false); err != nil {
		return err
	}
	if err := g.emitString(signatureBlockEnd); err != nil {
		return err
	}
	g.signatures = append(g.signatures, ctx)
	return nil
}

// AddLockSignatureBlock writes the lock signature block, which signs the Base64 text
// of signature block target. It must follow the last AddSignatureBlock.
func (g *Generator) AddLockSignatureBlock(target int, signer Credential, h crypto.Hash) error {
	op := opAddLockSignatureBlock.String()
	if err := g.checkOnly(opAddLockSignatureBlock); err != nil {
		return err
	}
	if target < 1 {
		return veo.NewArgumentError(op, fmt.Sprintf("signsSignatureId (%d) must be a positive integer", target))
	}
	if target >= g.nextSignatureID {
		return veo.NewArgumentError(op, fmt.Sprintf("signsSignatureId (%d) is greater than number of signatures in VEO", target))
	}
	key, alg, certs, err := prepareSigner(op, signer, h)
	if err != nil {
		return err
	}
	_ = g.check(opAddLockSignatureBlock)

	g.lockTarget = target
	g.lock = newSignatureContext(0, alg, key)
	if err := g.emitString(lockSignatureBlockStart(g.revisionID, target)); err != nil {
		return err
	}
	if err := g.writeSignatureBlock(g.lock, signer, certs, true); err != nil {
		return err
	}
	return g.emitString(lockSignatureBlockEnd)
}

// prepareSigner obtains everything needed from the credential before any output is written.
func prepareSigner(op string, signer Credential, h crypto.Hash) (crypto.Signer, Algorithm, [][]byte, error) {
	if signer == nil {
		return nil, Algorithm{}, nil, veo.NewArgumentError(op, "passed nil signer")
	}
	key, err := signer.Signer()
	if err != nil {
		return nil, Algorithm{}, nil, veo.WrapCryptoError(err, op, "failed to get private key from signer")
	}
	if key == nil {
		return nil, Algorithm{}, nil, veo.NewCryptoError(op, "failed to get private key from signer")
	}
	alg, err := AlgorithmFor(key.Public(), h)
	if err != nil {
		return nil, Algorithm{}, nil, err
	}
	certs := make([][]byte, 0, signer.ChainLength())
	for i := 0; i < signer.ChainLength(); i++ {
		der, err := signer.CertificateDER(i)
		if err != nil {
			return nil, Algorithm{}, nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to get certificate %d from signer", i))
		}
		certs = append(certs, der)
	}
	return key, alg, certs, nil
}

// writeSignatureBlock writes the body shared by signature and lock signature blocks,
// reserving space for the signature value.
func (g *Generator) writeSignatureBlock(ctx *signatureContext, signer Credential, certs [][]byte, lock bool) error {
	coverage := signedObjectCoverage
	if lock {
		coverage = lockCoverage
	}

	subject := unknownSigner
	if signer.ChainLength() > 0 {
		if s := signer.CertificateSubjectText(0); s != "" {
			subject = veo.EscapeXML(s)
		}
	}

	if err := g.emitString(
		formatDescription(ctx.alg), certificateDescription, coverage,
		algorithmStart, ctx.alg.OID, algorithmEnd,
		g.date(), signatureDateEnd,
		subject, signerEnd,
	); err != nil {
		return err
	}

	ctx.offset = g.out.Offset()
	if err := g.emit(placeholder(ctx.length)); err != nil {
		return err
	}
	if err := g.emitString(placeholderEnd, signatureEnd); err != nil {
		return err
	}

	for _, der := range certs {
		if err := g.emitString(certificateStart); err != nil {
			return err
		}
		if err := g.emit(b64.EncodeBuffer(der)); err != nil {
			return err
		}
		if err := g.emitString(certificateEnd); err != nil {
			return err
		}
	}
	return g.emitString(certificateBlockEnd)
}

// IncludeSignedObject copies a complete, already rendered vers:SignedObject into the
// VEO in place of a record or file.
func (g *Generator) IncludeSignedObject(r io.Reader) error {
	op := opIncludeSignedObject.String()
	if err := g.checkOnly(opIncludeSignedObject); err != nil {
		return err
	}
	if r == nil {
		return veo.NewArgumentError(op, "reader is nil")
	}
	_ = g.check(opIncludeSignedObject)

	g.capturing = true
	defer func() { g.capturing = false }()

	if _, err := io.Copy(emitWriter{g}, r); err != nil {
		return asVEOError(err, op, "error reading signed object")
	}
	return nil
}

// StartRecord begins a record VEO. template renders the record metadata from data.
func (g *Generator) StartRecord(t *template.Template, data veo.DataSource) error {
	op := opStartRecord.String()
	if err := g.checkOnly(opStartRecord); err != nil {
		return err
	}
	if err := requireTemplate(op, "template", t, data); err != nil {
		return err
	}
	_ = g.check(opStartRecord)

	g.documentID = 1
	g.capturing = true
	if err := g.emitString(recordStart, g.date(), recordContentStart); err != nil {
		return err
	}
	return t.Resolve(data, templateOutput{g})
}

// StartDocument begins the next vers:Document of the record.
func (g *Generator) StartDocument(t *template.Template, data veo.DataSource) error {
	op := opStartDocument.String()
	if err := g.checkOnly(opStartDocument); err != nil {
		return err
	}
	if err := requireTemplate(op, "template", t, data); err != nil {
		return err
	}
	_ = g.check(opStartDocument)

	if err := g.emitString(documentStart(g.revisionID, g.documentID)); err != nil {
		return err
	}
	if err := t.Resolve(data, templateOutput{g}); err != nil {
		return err
	}
	if err := g.emitString(documentMetadataEnd); err != nil {
		return err
	}
	g.encodingID = 1
	return nil
}

// AddEncoding adds the file at path to the current document using the encoding
// template registered for its extension.
func (g *Generator) AddEncoding(path string) error {
	op := opAddEncoding.String()
	if err := g.checkOnly(opAddEncoding); err != nil {
		return err
	}
	if path == "" {
		return veo.NewArgumentError(op, "file is empty")
	}
	_ = g.check(opAddEncoding)

	if err := g.emitString(encodingStart(g.revisionID, g.documentID, g.encodingID)); err != nil {
		return err
	}
	if err := g.resolveEncoding(op, path, g.revisionID, g.documentID, g.encodingID); err != nil {
		return err
	}
	if err := g.emitString(encodingEnd); err != nil {
		return err
	}
	g.encodingID++
	return nil
}

// resolveEncoding renders the encoding template for path against the synthetic row
// [absolute path, revision, document, encoding].
func (g *Generator) resolveEncoding(op, path string, revision, document, encoding int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return veo.WrapIOError(err, op, "attempting to get path of included file gave error")
	}
	row := datasource.NewArrayDataSource([]string{
		abs, strconv.Itoa(revision), strconv.Itoa(document), strconv.Itoa(encoding),
	})
	t := &template.Template{
		Name:      op,
		Fragments: []template.Fragment{{Kind: template.KindEncoding, Column: 1, Location: op}},
	}
	return t.Resolve(row, templateOutput{g})
}

func (g *Generator) EndDocument() error {
	if err := g.check(opEndDocument); err != nil {
		return err
	}
	if err := g.emitString(documentEnd); err != nil {
		return err
	}
	g.documentID++
	return nil
}

func (g *Generator) EndRecord() error {
	if err := g.check(opEndRecord); err != nil {
		return err
	}
	err := g.emitString(recordEnd)
	g.capturing = false
	return err
}

// AddSimpleRecord writes a complete record of one document with one encoding from a
// single row. data supplies both sets of metadata and names the file to encode in
// column 3. The ids are all 1.
func (g *Generator) AddSimpleRecord(recordTemplate, documentTemplate *template.Template, data veo.DataSource) error {
	op := opAddSimpleRecord.String()
	if err := g.checkOnly(opAddSimpleRecord); err != nil {
		return err
	}
	if err := requireTemplate(op, "record template", recordTemplate, data); err != nil {
		return err
	}
	if documentTemplate == nil {
		return veo.NewArgumentError(op, "document template is nil")
	}
	_ = g.check(opAddSimpleRecord)

	g.documentID = 1
	g.encodingID = 1
	g.capturing = true
	defer func() { g.capturing = false }()

	out := templateOutput{g}
	if err := g.emitString(recordStart, g.date(), recordContentStart); err != nil {
		return err
	}
	if err := recordTemplate.Resolve(data, out); err != nil {
		return err
	}
	if err := g.emitString(documentStart(1, 1)); err != nil {
		return err
	}
	if err := documentTemplate.Resolve(data, out); err != nil {
		return err
	}
	if err := g.emitString(documentMetadataEnd, encodingStart(1, 1, 1)); err != nil {
		return err
	}
	if err := g.resolveEncoding(op, data.Column(3), 1, 1, 1); err != nil {
		return err
	}
	return g.emitString(encodingEnd, documentEnd, recordEnd)
}

// AddFile writes a file VEO, whose metadata is rendered from template and data.
func (g *Generator) AddFile(t *template.Template, data veo.DataSource) error {
	op := opAddFile.String()
	if err := g.checkOnly(opAddFile); err != nil {
		return err
	}
	if err := requireTemplate(op, "template", t, data); err != nil {
		return err
	}
	_ = g.check(opAddFile)

	g.capturing = true
	defer func() { g.capturing = false }()

	if err := g.emitString(fileStart, g.date(), fileContentStart); err != nil {
		return err
	}
	if err := t.Resolve(data, templateOutput{g}); err != nil {
		return err
	}
	return g.emitString(fileEnd)
}

// EndVEO writes the end of the VEO, calculates the signatures, writes them into the
// space reserved for them and closes the output.
func (g *Generator) EndVEO() error {
	op := opEndVEO.String()
	if err := g.check(opEndVEO); err != nil {
		return err
	}

	g.capturing = false
	if err := g.emitString(veoEpilogue); err != nil {
		return err
	}

	for _, sig := range g.signatures {
		encoded, err := sig.sign(op)
		if err != nil {
			return err
		}
		if err := g.out.OverwriteAt(sig.offset, encoded); err != nil {
			return veo.WrapIOError(err, op, "error positioning to write signature")
		}
		g.logger.Debug("signature written",
			slog.Int("signature", sig.id),
			slog.String("algorithm", sig.alg.Name),
			slog.Int64("offset", sig.offset))

		if sig.id == g.lockTarget && g.lock != nil {
			g.lock.digest.Write(veo.StripSignatureWhitespace(encoded))
		}
	}

	if g.lock != nil {
		encoded, err := g.lock.sign(op)
		if err != nil {
			return err
		}
		if err := g.out.OverwriteAt(g.lock.offset, encoded); err != nil {
			return veo.WrapIOError(err, op, "error positioning to write lock signature")
		}
		g.logger.Debug("lock signature written",
			slog.Int("signs", g.lockTarget),
			slog.String("algorithm", g.lock.alg.Name),
			slog.Int64("offset", g.lock.offset))
	}

	out := g.out
	g.out = nil
	if err := out.Close(); err != nil {
		return veo.WrapIOError(err, op, "failed to close VEO")
	}
	return nil
}

// CleanUpAfterError abandons the VEO being written, closing its output, so that
// StartVEO can be called again. The partly written file is left in place.
func (g *Generator) CleanUpAfterError() {
	g.state = StateNotStarted
	g.capturing = false
	g.signatures = nil
	g.lock = nil
	if g.out != nil {
		if err := g.out.discard(); err != nil {
			g.logger.Debug("failed to close abandoned VEO", slog.String("error", err.Error()))
		}
		g.out = nil
	}
}

func requireTemplate(op, what string, t *template.Template, data veo.DataSource) error {
	if t == nil {
		return veo.NewArgumentError(op, what+" is nil")
	}
	if data == nil {
		return veo.NewArgumentError(op, "data is nil")
	}
	return nil
}

// asVEOError passes *veo.Error values through and wraps anything else as I/O.
func asVEOError(err error, op, msg string) error {
	var veoErr *veo.Error
	if errors.As(err, &veoErr) {
		return err
	}
	return veo.WrapIOError(err, op, msg)
}

// emitWriter adapts emit to io.Writer for io.Copy.
type emitWriter struct{ g *Generator }

func (w emitWriter) Write(p []byte) (int, error) {
	if err := w.g.emit(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// templateOutput is the view of the generator given to templates while they resolve.
type templateOutput struct{ g *Generator }

func (o templateOutput) Write(p []byte) (int, error) { return emitWriter(o).Write(p) }
func (o templateOutput) SequenceNo() int             { return o.g.seqNo }
func (o templateOutput) Now() time.Time              { return o.g.now() }

func (o templateOutput) EncodingTemplate(ext string) (*template.Template, bool) {
	return o.g.registry.Lookup(ext)
}
