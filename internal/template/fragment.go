// Package template turns VEO metadata templates into fragment lists and resolves them
// against rows of data.
//
// A template is literal text with substitutions delimited by "$$". For example
//
//	<vers:Title>$$ column 4 $$</vers:Title>
//	<vers:Date>$$ date $$</vers:Date>
//
// The recognised substitutions are:
//
//	date                         the current date and time in VERS format
//	sequenceno                   the sequence number of the VEO being built
//	argument <n>                 command line argument n (resolved when parsed)
//	column <n> | <n>             column n of the current row, XML escaped
//	column-xml <n>               column n of the current row, verbatim
//	file binary|utf8|xml [column] <n>
//	                             the content of the file named in column n
//	e|encoding [column] <n>      the encoding template for the file named in column n
//
// Syntax errors in a substitution are logged and the substitution is dropped; the rest
// of the template is still usable.
package template

import "fmt"

// Kind identifies the variant of a Fragment.
type Kind int

const (
	KindLiteral Kind = iota
	KindDate
	KindSequenceNo
	KindColumn
	KindColumnXML
	KindFile
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindDate:
		return "date"
	case KindSequenceNo:
		return "sequenceno"
	case KindColumn:
		return "column"
	case KindColumnXML:
		return "column-xml"
	case KindFile:
		return "file"
	case KindEncoding:
		return "encoding"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FileMode controls how a file substitution copies the named file into the VEO.
type FileMode int

const (
	// FileBinary Base64 encodes the file (76 character lines).
	FileBinary FileMode = iota
	// FileUTF8 copies the file escaping &, < and >.
	FileUTF8
	// FileXML copies the file verbatim; it must already be well formed XML content.
	FileXML
)

func (m FileMode) String() string {
	switch m {
	case FileBinary:
		return "binary"
	case FileUTF8:
		return "utf8"
	case FileXML:
		return "xml"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Fragment is one piece of static or dynamic template content.
// Fragments are immutable once parsed and may be shared by any number of VEO builds.
type Fragment struct {
	Kind Kind

	// Text is the content of a literal fragment.
	Text string

	// Column is the 1-based column referenced by column, file and encoding fragments.
	Column int

	// Mode applies to file fragments only.
	Mode FileMode

	// Location describes where the fragment came from, e.g. "template record.template (around line 3)".
	Location string
}

// Template is the ordered fragment list parsed from one template file.
type Template struct {
	Name      string
	Fragments []Fragment

	// SyntaxErrors holds the substitutions that were dropped while parsing.
	SyntaxErrors []error
}
