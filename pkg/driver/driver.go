// Package driver runs the assembly front end: strip comments, parse and
// preprocess, validate labels, locate the entry point, load the data segment
// and assemble the execution driver handed to the VM.
package driver

import (
	"github.com/golang/glog"

	"sicasm/pkg/dataparse"
	"sicasm/pkg/preprocess"
	"sicasm/pkg/source"
	"sicasm/pkg/vm"
)

// Config tunes the front end.
type Config struct {
	MaxMacroDepth int
}

// DefaultConfig returns the settings used by Preprocess.
func DefaultConfig() Config {
	return Config{MaxMacroDepth: preprocess.DefaultMaxMacroDepth}
}

// Grammar parses stripped source into ctx and out.
type Grammar interface {
	Parse(ctx *preprocess.Context, out *preprocess.Output, src string) error
}

// Preprocessor holds the collaborators of the pipeline. It keeps no state
// between calls and may be shared between goroutines.
type Preprocessor struct {
	Grammar Grammar
	Data    DirectiveParser
}

// New returns a Preprocessor built from cfg.
func New(cfg Config) *Preprocessor {
	if cfg.MaxMacroDepth <= 0 {
		cfg.MaxMacroDepth = preprocess.DefaultMaxMacroDepth
	}
	return &Preprocessor{
		Grammar: &preprocess.Parser{MaxMacroDepth: cfg.MaxMacroDepth, DataCapacity: vm.MemorySize},
		Data:    dataparse.Parser{},
	}
}

// Preprocess assembles src with the default configuration.
func Preprocess(src string) (*Driver, error) {
	return New(DefaultConfig()).Preprocess(src)
}

// ExecContext is the symbolic state the execution engine starts from.
type ExecContext struct {
	Functions preprocess.FunctionTable
	Labels    preprocess.LabelTable
	CallStack []int
}

// Driver is everything the execution engine needs to run one program.
type Driver struct {
	EntryIndex int // code index of the entry label
	EntryLine  int // 1-based source line of EntryIndex
	VM         *vm.VM
	Source     string // comment-stripped source
	Positions  preprocess.PositionMap
	Index      *source.Index
	Output     *preprocess.Output
	Exec       *ExecContext
	DataSize   int // bytes allocated by data directives
}

// Preprocess runs the whole pipeline over src. On failure it returns an
// *Error and no driver.
func (p *Preprocessor) Preprocess(src string) (*Driver, error) {
	buf := source.Strip(src)
	idx := source.NewIndex(buf)

	ctx, out, err := p.run(buf, idx)
	if err != nil {
		return nil, err
	}

	entry, err := Validate(buf, idx, ctx)
	if err != nil {
		return nil, err
	}

	// The halt goes in before the entry lookup: a start label on the last
	// line targets it.
	out.EmitCode(preprocess.HaltMnemonic, len(buf))
	offset, ok := out.Positions.CodeOffset(entry)
	if !ok {
		return nil, &Error{Kind: EntryPointNotCode, Label: EntryLabel}
	}
	line, _, _ := idx.Locate(offset)

	machine := vm.New()
	size, err := LoadData(p.Data, machine, out.Data)
	if err != nil {
		return nil, err
	}

	glog.V(1).Infof("driver: entry %d (line %d), %d instructions, %d data bytes",
		entry, line, len(out.Code), size)

	return &Driver{
		EntryIndex: entry,
		EntryLine:  line,
		VM:         machine,
		Source:     buf,
		Positions:  out.Positions,
		Index:      idx,
		Output:     out,
		Exec: &ExecContext{
			Functions: ctx.Functions,
			Labels:    ctx.Labels,
			CallStack: []int{},
		},
		DataSize: size,
	}, nil
}

func (p *Preprocessor) run(buf string, idx *source.Index) (*preprocess.Context, *preprocess.Output, error) {
	ctx := preprocess.NewContext()
	out := &preprocess.Output{}
	if err := p.Grammar.Parse(ctx, out, buf); err != nil {
		return nil, nil, translateParseError(buf, idx, err)
	}
	glog.V(1).Infof("preprocess: %d instructions, %d data directives, %d labels, %d procedures, %d deferred references",
		len(out.Code), len(out.Data), len(ctx.Labels), len(ctx.Functions), len(ctx.Undefined))
	return ctx, out, nil
}
