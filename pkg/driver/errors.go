package driver

import (
	"errors"
	"fmt"

	"sicasm/pkg/preprocess"
	"sicasm/pkg/source"
)

// ErrorKind classifies a failed assembly.
type ErrorKind int

const (
	SyntaxError        ErrorKind = iota // lexical, grammatical or custom grammar error
	UndefinedLabel                      // reference to a label that is never defined
	LabelKindMismatch                   // code label used as data or the reverse
	UndefinedProcedure                  // call of a procedure that is never defined
	MissingEntryPoint                   // no "start" label
	EntryPointNotCode                   // "start" labels data
	InternalError                       // loader rejected a directive the grammar accepted
)

var kindNames = map[ErrorKind]string{
	SyntaxError:        "syntax error",
	UndefinedLabel:     "undefined label",
	LabelKindMismatch:  "label kind mismatch",
	UndefinedProcedure: "undefined procedure",
	MissingEntryPoint:  "missing entry point",
	EntryPointNotCode:  "entry point is not code",
	InternalError:      "internal error",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Category groups kinds the way they are reported: "syntax", "semantic" or
// "internal".
func (k ErrorKind) Category() string {
	switch k {
	case SyntaxError:
		return "syntax"
	case InternalError:
		return "internal"
	}
	return "semantic"
}

// Error is the single error type returned by the pipeline. Error() yields
// the user-facing message.
type Error struct {
	Kind   ErrorKind
	Label  string           // offending name, if any
	Pos    *source.Position // nil when no span is available
	Detail string
	Err    error // underlying cause
}

func (e *Error) Error() string {
	switch e.Kind {
	case SyntaxError:
		if e.Pos == nil {
			return fmt.Sprintf("Syntax Error :\n%s", e.Detail)
		}
		return fmt.Sprintf("Syntax Error at %s :\n%s", e.Pos, e.Detail)
	case UndefinedLabel:
		return fmt.Sprintf("Label %s used but not defined at %s", e.Label, e.Pos)
	case LabelKindMismatch:
		return fmt.Sprintf("Label %s %s at %s", e.Label, e.Detail, e.Pos)
	case UndefinedProcedure:
		return fmt.Sprintf("Procedure %s used but not defined at %s", e.Label, e.Pos)
	case MissingEntryPoint, EntryPointNotCode:
		return fmt.Sprintf("Error : necessary label '%s' is not found in code", e.Label)
	case InternalError:
		return fmt.Sprintf("Internal Error :\nShould not have reached here in data parser\nError : %s", e.Detail)
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// translateParseError converts a grammar failure into an *Error. An
// UnrecognizedToken with an empty token and a message in Expected[0] is a
// domain error raised by the grammar, and its message is reported verbatim.
func translateParseError(buf string, idx *source.Index, err error) error {
	var ut *preprocess.UnrecognizedToken
	if !errors.As(err, &ut) {
		return &Error{Kind: SyntaxError, Detail: err.Error(), Err: err}
	}
	pos := source.Locate(buf, idx, ut.Start)
	if msg, ok := ut.Custom(); ok {
		return &Error{Kind: SyntaxError, Pos: &pos, Detail: msg, Err: err}
	}
	return &Error{Kind: SyntaxError, Pos: &pos, Detail: "Unexpected Token : " + ut.Token.String(), Err: err}
}
