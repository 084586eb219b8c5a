package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

const tag = "$$"

// ParseFile reads and parses the template at path.
// A missing file, a directory or a read failure is fatal; syntax errors are not.
func ParseFile(path string, argv []string, logger *slog.Logger) (*Template, error) {
	const op = "template.ParseFile"

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, veo.WrapNotFoundError(err, op, fmt.Sprintf("template file '%s' does not exist", path))
		}
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("cannot stat template file '%s'", path))
	}
	if info.IsDir() {
		return nil, veo.NewArgumentError(op, fmt.Sprintf("template file '%s' is a directory", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("failed to read template file '%s'", path))
	}
	return Parse(filepath.Base(path), bytes.NewReader(data), argv, logger)
}

// Parse splits the template read from r into literal and substitution fragments.
// name is used only in locations and log messages. argv supplies the values of
// argument substitutions, which are resolved here rather than at build time.
//
// Literal text between two adjacent substitutions is kept even when it is empty.
// Line endings in literal text are written as LF.
func Parse(name string, r io.Reader, argv []string, logger *slog.Logger) (*Template, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, veo.WrapIOError(err, "template.Parse", fmt.Sprintf("failed to read template %s", name))
	}
	// CRLF and lone CR line endings are read as LF
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	src = bytes.ReplaceAll(src, []byte("\r"), []byte("\n"))

	t := &Template{Name: name}
	line := 1
	start := 0
	literal := true

	emit := func(text string) {
		location := fmt.Sprintf("template %s (around line %d)", name, line)
		if literal {
			t.Fragments = append(t.Fragments, Fragment{Kind: KindLiteral, Text: text, Location: location})
			return
		}
		f, err := parseSubstitution(location, text, argv)
		if err != nil {
			t.SyntaxErrors = append(t.SyntaxErrors, err)
			logger.Warn("template syntax error",
				slog.String("location", location),
				slog.String("substitution", text),
				slog.String("error", err.Error()))
			return
		}
		t.Fragments = append(t.Fragments, f)
	}

	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			line++
			continue
		}
		if src[i] != tag[0] || i+1 >= len(src) || src[i+1] != tag[1] {
			continue
		}
		emit(string(src[start:i]))
		literal = !literal
		i++
		start = i + 1
	}

	// whatever remains is a final literal, or an unterminated substitution
	emit(string(src[start:]))
	return t, nil
}

// parseSubstitution interprets the text between a pair of tags.
func parseSubstitution(location, text string, argv []string) (Fragment, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Fragment{}, veo.NewSyntaxError(location, fmt.Sprintf("empty substitution (e.g. '$$ $$') '%s'", text))
	}

	f := Fragment{Location: location}
	args := tokens[1:]

	switch strings.ToLower(tokens[0]) {
	case "date":
		f.Kind = KindDate
		return f, nil

	case "sequenceno":
		f.Kind = KindSequenceNo
		return f, nil

	case "e", "encoding":
		col, err := columnRef(location, "encoding", text, args, true)
		if err != nil {
			return Fragment{}, err
		}
		f.Kind = KindEncoding
		f.Column = col
		return f, nil

	case "file":
		if len(args) == 0 {
			return Fragment{}, veo.NewSyntaxError(location, fmt.Sprintf("file type reference is missing in file substitution '%s'", text))
		}
		switch strings.ToLower(args[0]) {
		case "binary":
			f.Mode = FileBinary
		case "utf8":
			f.Mode = FileUTF8
		case "xml":
			f.Mode = FileXML
		default:
			return Fragment{}, veo.NewSyntaxError(location, fmt.Sprintf("invalid file type reference in file substitution '%s' (must be 'binary', 'utf8', or 'xml')", text))
		}
		col, err := columnRef(location, "file", text, args[1:], true)
		if err != nil {
			return Fragment{}, err
		}
		f.Kind = KindFile
		f.Column = col
		return f, nil

	case "argument":
		if len(args) == 0 {
			return Fragment{}, veo.NewSyntaxError(location, fmt.Sprintf("argument reference is missing in argument substitution '%s'", text))
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return Fragment{}, veo.NewSyntaxError(location, fmt.Sprintf("argument reference in argument substitution '%s' is invalid (must be a non-negative integer)", text))
		}
		if n >= len(argv) {
			return Fragment{}, veo.NewSyntaxError(location, fmt.Sprintf("argument reference in argument substitution '%s' is invalid (must be less than the number of command line arguments)", text))
		}
		f.Kind = KindLiteral
		f.Text = argv[n]
		return f, nil

	case "column":
		col, err := columnRef(location, "column", text, args, false)
		if err != nil {
			return Fragment{}, err
		}
		f.Kind = KindColumn
		f.Column = col
		return f, nil

	case "column-xml":
		col, err := columnRef(location, "column", text, args, false)
		if err != nil {
			return Fragment{}, err
		}
		f.Kind = KindColumnXML
		f.Column = col
		return f, nil
	}

	// a bare number is a column reference
	col, err := columnRef(location, "column", text, tokens, false)
	if err != nil {
		return Fragment{}, err
	}
	f.Kind = KindColumn
	f.Column = col
	return f, nil
}

// columnRef parses "[column] <n>" from args. The optional keyword is only accepted
// when allowKeyword is set.
func columnRef(location, what, text string, args []string, allowKeyword bool) (int, error) {
	if allowKeyword && len(args) > 0 && strings.EqualFold(args[0], "column") {
		args = args[1:]
	}
	if len(args) == 0 {
		return 0, veo.NewSyntaxError(location, fmt.Sprintf("column reference is missing in %s substitution '%s'", what, text))
	}
	col, err := strconv.Atoi(args[0])
	if err != nil || col < 1 {
		return 0, veo.NewSyntaxError(location, fmt.Sprintf("column reference in %s substitution '%s' is invalid (must be a positive integer)", what, text))
	}
	return col, nil
}
