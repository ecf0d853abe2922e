package preprocess

// LabelKind says what a label's target indexes.
type LabelKind int

const (
	LabelCode LabelKind = iota // target is an instruction index
	LabelData                  // target is an allocation offset
)

func (k LabelKind) String() string {
	if k == LabelData {
		return "data"
	}
	return "code"
}

// Label is a resolved symbol.
type Label struct {
	Name   string
	Kind   LabelKind
	Target int
	Offset int // source offset of the definition
}

// LabelTable maps label names to labels. Names are case-sensitive.
type LabelTable map[string]Label

// RefKind says how a name was used, and therefore which table must define it.
type RefKind int

const (
	RefCode RefKind = iota // jump target, must be a code label
	RefData                // value or address, must be a data label
	RefProc                // call target, must be a procedure
)

func (k RefKind) String() string {
	switch k {
	case RefData:
		return "data"
	case RefProc:
		return "procedure"
	default:
		return "code"
	}
}

// LabelKind is the label kind a RefCode or RefData reference needs.
func (k RefKind) LabelKind() LabelKind {
	if k == RefData {
		return LabelData
	}
	return LabelCode
}

// UndefinedRef records a use the validator must check once every definition
// is known: a name used before its definition, or a label used as the wrong
// kind.
type UndefinedRef struct {
	Offset int
	Name   string
	Want   RefKind
}

// Procedure is a `def name { ... }` block covering code indexes [Start, End).
type Procedure struct {
	Name   string
	Start  int
	End    int
	Offset int
}

// FunctionTable maps procedure names to procedures.
type FunctionTable map[string]Procedure

// Macro is a `macro name(params) -> body <-` definition.
type Macro struct {
	Name   string
	Params []string
	Body   []Token
	Offset int
}

// Context is the bookkeeping accumulated while parsing. Later stages only
// read Labels, Functions and Undefined.
type Context struct {
	MacroNestingCounter int
	DataCounter         int
	Labels              LabelTable
	Macros              map[string]*Macro
	Functions           FunctionTable
	Undefined           []UndefinedRef
}

// NewContext returns an empty Context.
func NewContext() *Context {
	ctx := &Context{}
	ctx.init()
	return ctx
}

func (ctx *Context) init() {
	if ctx.Labels == nil {
		ctx.Labels = make(LabelTable)
	}
	if ctx.Macros == nil {
		ctx.Macros = make(map[string]*Macro)
	}
	if ctx.Functions == nil {
		ctx.Functions = make(FunctionTable)
	}
}
