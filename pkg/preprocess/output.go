package preprocess

// PositionMap links every output index to the source offset it came from.
// Code[i] belongs to Output.Code[i] and Data[i] to Output.Data[i].
type PositionMap struct {
	Code []int
	Data []int
}

// CodeOffset returns the source offset of instruction i.
func (m *PositionMap) CodeOffset(i int) (int, bool) {
	if i < 0 || i >= len(m.Code) {
		return 0, false
	}
	return m.Code[i], true
}

// DataOffset returns the source offset of data directive i.
func (m *PositionMap) DataOffset(i int) (int, bool) {
	if i < 0 || i >= len(m.Data) {
		return 0, false
	}
	return m.Data[i], true
}

// Output is what the grammar produces: canonical instruction text, raw data
// directive text, and where each came from.
type Output struct {
	Code      []string
	Data      []string
	Positions PositionMap
}

// EmitCode appends an instruction that originated at offset.
func (o *Output) EmitCode(text string, offset int) {
	o.Code = append(o.Code, text)
	o.Positions.Code = append(o.Positions.Code, offset)
}

// EmitData appends a data directive that originated at offset.
func (o *Output) EmitData(text string, offset int) {
	o.Data = append(o.Data, text)
	o.Positions.Data = append(o.Positions.Data, offset)
}
