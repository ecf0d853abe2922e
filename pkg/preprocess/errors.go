package preprocess

import (
	"fmt"
	"strings"
)

// The grammar engine reports failures with the error shapes of an LR parser.
// Domain errors (duplicate label, bad macro call, ...) have no channel of
// their own: they travel as an UnrecognizedToken whose Token text is empty
// and whose first Expected item is the message. Callers must check for that
// shape before treating an UnrecognizedToken as a real syntax error; see
// IsCustom.

// InvalidToken reports input the lexer could not split into tokens.
type InvalidToken struct {
	Location int
}

func (e *InvalidToken) Error() string {
	return fmt.Sprintf("Invalid token at %d", e.Location)
}

// UnrecognizedEOF reports input that ended in the middle of a statement.
type UnrecognizedEOF struct {
	Location int
	Expected []string
}

func (e *UnrecognizedEOF) Error() string {
	return fmt.Sprintf("Unrecognized EOF found at %d", e.Location) + expectedSuffix(e.Expected)
}

// UnrecognizedToken reports a token that cannot appear where it was found.
type UnrecognizedToken struct {
	Start    int
	End      int
	Token    Token
	Expected []string
}

func (e *UnrecognizedToken) Error() string {
	if msg, ok := e.Custom(); ok {
		return msg
	}
	return fmt.Sprintf("Unrecognized token `%s` found at %d:%d", e.Token, e.Start, e.End) + expectedSuffix(e.Expected)
}

// Custom returns the piggybacked domain message, if this error carries one.
func (e *UnrecognizedToken) Custom() (string, bool) {
	if e.Token.Text == "" && len(e.Expected) > 0 {
		return e.Expected[0], true
	}
	return "", false
}

// IsCustom reports whether err is a domain error raised through the
// unrecognized-token channel.
func IsCustom(err error) bool {
	ut, ok := err.(*UnrecognizedToken)
	if !ok {
		return false
	}
	_, custom := ut.Custom()
	return custom
}

// customError raises msg at offset through the unrecognized-token channel.
func customError(offset int, format string, args ...interface{}) error {
	return &UnrecognizedToken{
		Start:    offset,
		End:      offset,
		Token:    Token{Kind: TokInvalid, Start: offset, End: offset},
		Expected: []string{fmt.Sprintf(format, args...)},
	}
}

func expectedSuffix(expected []string) string {
	switch len(expected) {
	case 0:
		return ""
	case 1:
		return "\nExpected " + expected[0]
	default:
		return "\nExpected one of " + strings.Join(expected, ", ")
	}
}
