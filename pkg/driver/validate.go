package driver

import (
	"fmt"

	"sicasm/pkg/preprocess"
	"sicasm/pkg/source"
)

// EntryLabel names the code label execution starts at.
const EntryLabel = "start"

// Validate resolves every reference the grammar deferred against the final
// label and procedure tables, in source order, and returns the code index of
// the entry label.
func Validate(buf string, idx *source.Index, ctx *preprocess.Context) (int, error) {
	for _, ref := range ctx.Undefined {
		if ref.Want == preprocess.RefProc {
			if _, ok := ctx.Functions[ref.Name]; !ok {
				pos := source.Locate(buf, idx, ref.Offset)
				return 0, &Error{Kind: UndefinedProcedure, Label: ref.Name, Pos: &pos}
			}
			continue
		}

		l, ok := ctx.Labels[ref.Name]
		if !ok {
			pos := source.Locate(buf, idx, ref.Offset)
			return 0, &Error{Kind: UndefinedLabel, Label: ref.Name, Pos: &pos}
		}
		if want := ref.Want.LabelKind(); l.Kind != want {
			pos := source.Locate(buf, idx, ref.Offset)
			return 0, &Error{
				Kind:   LabelKindMismatch,
				Label:  ref.Name,
				Pos:    &pos,
				Detail: fmt.Sprintf("is a %s label but is used as %s", l.Kind, ref.Want),
			}
		}
	}

	start, ok := ctx.Labels[EntryLabel]
	if !ok {
		return 0, &Error{Kind: MissingEntryPoint, Label: EntryLabel}
	}
	if start.Kind != preprocess.LabelCode {
		return 0, &Error{Kind: EntryPointNotCode, Label: EntryLabel}
	}
	return start.Target, nil
}
