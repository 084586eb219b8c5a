package generator

import "fmt"

// State is the position of a Generator in the VEO construction sequence.
//
//	NotStarted -> VEOStarted -> SigBlockOut (repeatable) -> LockSigOut
//	LockSigOut -> RecStarted -> DocStarted -> EncodingAdded (repeatable) -> DocEnded (-> DocStarted) -> RecEnded
//	LockSigOut -> RecEnded (IncludeSignedObject, AddSimpleRecord)
//	LockSigOut -> FileEnded (AddFile)
//	RecEnded | FileEnded -> VEOEnded -> VEOStarted (next VEO)
type State int

const (
	StateNotStarted State = iota
	StateVEOStarted
	StateSigBlockOut
	StateLockSigOut
	StateRecStarted
	StateDocStarted
	StateEncodingAdded
	StateDocEnded
	StateRecEnded
	StateFileEnded
	StateVEOEnded
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateVEOStarted:
		return "VEOStarted"
	case StateSigBlockOut:
		return "SigBlockOut"
	case StateLockSigOut:
		return "LockSigOut"
	case StateRecStarted:
		return "RecStarted"
	case StateDocStarted:
		return "DocStarted"
	case StateEncodingAdded:
		return "EncodingAdded"
	case StateDocEnded:
		return "DocEnded"
	case StateRecEnded:
		return "RecEnded"
	case StateFileEnded:
		return "FileEnded"
	case StateVEOEnded:
		return "VEOEnded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// open reports whether a VEO is being written.
func (s State) open() bool {
	return s != StateNotStarted && s != StateVEOEnded
}

// bodyStarted reports whether the record, file or included object has begun.
func (s State) bodyStarted() bool {
	return s >= StateRecStarted && s <= StateFileEnded
}

type operation int

const (
	opStartVEO operation = iota
	opAddSignatureBlock
	opAddLockSignatureBlock
	opIncludeSignedObject
	opStartRecord
	opAddSimpleRecord
	opAddFile
	opStartDocument
	opAddEncoding
	opEndDocument
	opEndRecord
	opEndVEO
)

var operationNames = map[operation]string{
	opStartVEO:              "StartVEO",
	opAddSignatureBlock:     "AddSignatureBlock",
	opAddLockSignatureBlock: "AddLockSignatureBlock",
	opIncludeSignedObject:   "IncludeSignedObject",
	opStartRecord:           "StartRecord",
	opAddSimpleRecord:       "AddSimpleRecord",
	opAddFile:               "AddFile",
	opStartDocument:         "StartDocument",
	opAddEncoding:           "AddEncoding",
	opEndDocument:           "EndDocument",
	opEndRecord:             "EndRecord",
	opEndVEO:                "EndVEO",
}

func (op operation) String() string { return "generator." + operationNames[op] }

// transition checks that op may be invoked in state s. It returns the state op moves
// to, or a message naming the call that must come first.
func transition(op operation, s State) (State, string) {
	const notStarted = "startVEO() has not been called on this VEO"

	switch op {
	case opStartVEO:
		if s.open() {
			return s, "startVEO() has already been called on this VEO"
		}
		return StateVEOStarted, ""

	case opAddSignatureBlock:
		switch {
		case !s.open():
			return s, notStarted
		case s > StateSigBlockOut:
			return s, "addLockSignatureBlock() has already been called on this VEO"
		}
		return StateSigBlockOut, ""

	case opAddLockSignatureBlock:
		switch {
		case !s.open():
			return s, notStarted
		case s == StateVEOStarted:
			return s, "addSignatureBlock() has not been called on this VEO"
		case s == StateLockSigOut:
			return s, "addLockSignatureBlock() has already been called on this VEO"
		case s > StateLockSigOut:
			return s, "startRecord() or addFile() has already been called on this VEO"
		}
		return StateLockSigOut, ""

	case opIncludeSignedObject, opStartRecord, opAddSimpleRecord, opAddFile:
		switch {
		case !s.open():
			return s, notStarted
		case s < StateLockSigOut:
			return s, "addLockSignatureBlock() has not been called on this VEO"
		case s.bodyStarted():
			return s, "startRecord() or addFile() has already been called on this VEO"
		}
		switch op {
		case opStartRecord:
			return StateRecStarted, ""
		case opAddFile:
			return StateFileEnded, ""
		default:
			return StateRecEnded, ""
		}

	case opStartDocument:
		switch {
		case !s.open() || s < StateRecStarted || s == StateFileEnded:
			return s, "startRecord() has not been called on this VEO"
		case s == StateDocStarted || s == StateEncodingAdded:
			return s, "startDocument() has already been called for this document"
		case s == StateRecEnded:
			return s, "endRecord() has been called on this VEO"
		}
		return StateDocStarted, ""

	case opAddEncoding:
		switch {
		case !s.open() || s < StateDocStarted || s == StateFileEnded:
			return s, "startDocument() must be called before addEncoding()"
		case s == StateDocEnded:
			return s, "addEncoding() cannot be called after endDocument() unless another call to startDocument() is made"
		case s == StateRecEnded:
			return s, "addEncoding() cannot be called after endRecord()"
		}
		return StateEncodingAdded, ""

	case opEndDocument:
		switch {
		case !s.open() || s < StateEncodingAdded || s == StateFileEnded:
			return s, "addEncoding() must be called before endDocument()"
		case s == StateDocEnded:
			return s, "endDocument() has already been called on this document"
		case s == StateRecEnded:
			return s, "endDocument() cannot be called after endRecord()"
		}
		return StateDocEnded, ""

	case opEndRecord:
		switch {
		case !s.open() || s < StateDocEnded || s == StateFileEnded:
			return s, "endDocument() has not been called on this VEO"
		case s == StateRecEnded:
			return s, "endRecord() has already been called on this VEO"
		}
		return StateRecEnded, ""

	case opEndVEO:
		switch {
		case s == StateVEOEnded:
			return s, "endVEO() has already been called on this VEO"
		case s == StateNotStarted:
			return s, notStarted
		case s != StateRecEnded && s != StateFileEnded:
			return s, "endRecord() or addFile() has not been called on this VEO"
		}
		return StateVEOEnded, ""
	}

	return s, fmt.Sprintf("unknown operation %d", int(op))
}
