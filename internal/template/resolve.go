package template

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/information-sharing-networks/veogen/internal/b64"
	"github.com/information-sharing-networks/veogen/internal/datasource"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

// UnknownEncoding is the registry key used when a file has no extension or no
// template is registered for its extension.
const UnknownEncoding = "unknown"

// maxEncodingDepth bounds encoding templates that include further encodings.
const maxEncodingDepth = 16

// Output is where resolved content is written. The generator implements it; every
// byte written goes through the generator's single write path.
type Output interface {
	io.Writer

	// SequenceNo is the sequence number of the VEO being built.
	SequenceNo() int

	// Now is the time used for date substitutions.
	Now() time.Time

	// EncodingTemplate returns the encoding template registered for a lowercased
	// file extension.
	EncodingTemplate(ext string) (*Template, bool)
}

type frame struct {
	fragments []Fragment
	data      veo.DataSource
}

// Resolve writes the template to out, taking column values from the current row of data.
//
// Encoding substitutions switch to another template (and possibly a synthetic row)
// part way through; they are handled with an explicit stack rather than recursion.
func (t *Template) Resolve(data veo.DataSource, out Output) error {
	stack := []frame{{fragments: t.Fragments, data: data}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.fragments) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		f := top.fragments[0]
		top.fragments = top.fragments[1:]
		row := top.data

		switch f.Kind {
		case KindLiteral:
			if err := writeString(out, f.Location, f.Text); err != nil {
				return err
			}

		case KindDate:
			if err := writeString(out, f.Location, veo.FormatDateTime(out.Now())); err != nil {
				return err
			}

		case KindSequenceNo:
			if err := writeString(out, f.Location, strconv.Itoa(out.SequenceNo())); err != nil {
				return err
			}

		case KindColumn, KindColumnXML:
			s, err := column(f, row)
			if err != nil {
				return err
			}
			if f.Kind == KindColumn {
				s = veo.EscapeXML(s)
			}
			if err := writeString(out, f.Location, s); err != nil {
				return err
			}

		case KindFile:
			if err := includeFile(f, row, out); err != nil {
				return err
			}

		case KindEncoding:
			if len(stack) > maxEncodingDepth {
				return veo.NewArgumentError(f.Location, "encoding templates are nested too deeply")
			}
			next, nextRow, err := encodingTemplate(f, row, out)
			if err != nil {
				return err
			}
			stack = append(stack, frame{fragments: next.Fragments, data: nextRow})

		default:
			return veo.NewArgumentError(f.Location, fmt.Sprintf("unsupported fragment kind %v", f.Kind))
		}
	}
	return nil
}

func column(f Fragment, row veo.DataSource) (string, error) {
	if row.ColumnCount() < f.Column {
		return "", veo.NewArgumentError(f.Location, fmt.Sprintf("column %d is not available from the data source", f.Column))
	}
	return row.Column(f.Column), nil
}

// regularFile checks that the file named by the fragment's column exists and is a normal file.
func regularFile(f Fragment, row veo.DataSource) (string, error) {
	path, err := column(f, row)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", veo.WrapNotFoundError(err, f.Location, fmt.Sprintf("file '%s' does not exist", path))
		}
		return "", veo.WrapIOError(err, f.Location, fmt.Sprintf("cannot stat file '%s'", path))
	}
	if !info.Mode().IsRegular() {
		return "", veo.NewArgumentError(f.Location, fmt.Sprintf("file '%s' is not a normal file", path))
	}
	return path, nil
}

func includeFile(f Fragment, row veo.DataSource, out Output) error {
	path, err := regularFile(f, row)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return veo.WrapIOError(err, f.Location, fmt.Sprintf("failed to open file '%s'", path))
	}
	defer file.Close()

	r := bufio.NewReader(file)
	switch f.Mode {
	case FileBinary:
		err = b64.EncodeStream(r, out)
	case FileUTF8:
		err = copyEscaped(out, r)
	case FileXML:
		_, err = io.Copy(out, r)
	}
	if err != nil {
		return asVEOError(err, f.Location, fmt.Sprintf("failed to include file '%s'", path))
	}
	return nil
}

// copyEscaped copies r to w replacing &, < and > with entity references.
func copyEscaped(w io.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := io.WriteString(w, veo.EscapeXML(string(buf[:n]))); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// encodingTemplate picks the template for the file named by the fragment's column.
// When falling back to the unknown template the row is extended with one column
// holding the file's extension (".ext") or "" when it has none.
func encodingTemplate(f Fragment, row veo.DataSource, out Output) (*Template, veo.DataSource, error) {
	path, err := regularFile(f, row)
	if err != nil {
		return nil, nil, err
	}

	ext := Extension(path)
	if ext != "" {
		if t, ok := out.EncodingTemplate(ext); ok {
			return t, row, nil
		}
	}

	t, ok := out.EncodingTemplate(UnknownEncoding)
	if !ok {
		return nil, nil, veo.NewNotFoundError(f.Location,
			fmt.Sprintf("file type '%s' is not known, and cannot find template for unknown file encoding", ext))
	}

	columns := make([]string, 0, row.ColumnCount()+1)
	for i := 1; i <= row.ColumnCount(); i++ {
		columns = append(columns, row.Column(i))
	}
	if ext != "" {
		columns = append(columns, "."+ext)
	} else {
		columns = append(columns, "")
	}
	return t, datasource.NewArrayDataSource(columns), nil
}

// Extension returns the lowercased text after the last '.' of the file name in path,
// or "" when there is none.
func Extension(path string) string {
	name := filepath.Base(path)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func writeString(out Output, location, s string) error {
	if _, err := io.WriteString(out, s); err != nil {
		return asVEOError(err, location, "failed writing to VEO")
	}
	return nil
}

// asVEOError passes errors from the output through unchanged and wraps anything else as I/O.
func asVEOError(err error, location, msg string) error {
	var veoErr *veo.Error
	if errors.As(err, &veoErr) {
		return err
	}
	return veo.WrapIOError(err, location, msg)
}
