package driver

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"sicasm/pkg/preprocess"
	"sicasm/pkg/source"
	"sicasm/pkg/utils"
	"sicasm/pkg/vm"
)

const (
	manifestEntry  = "driver.json"
	sourceEntry    = "source.asm"
	archiveVersion = 1
)

type manifest struct {
	Version       int                    `json:"version"`
	EntryIndex    int                    `json:"entry_index"`
	EntryLine     int                    `json:"entry_line"`
	DataSize      int                    `json:"data_size"`
	Code          []string               `json:"code"`
	Data          []string               `json:"data"`
	CodePositions []int                  `json:"code_positions"`
	DataPositions []int                  `json:"data_positions"`
	Labels        []preprocess.Label     `json:"labels"`
	Functions     []preprocess.Procedure `json:"functions"`
}

// WriteArchive stores the driver as a ZIP archive: the manifest, the stripped
// source and a VM snapshot.
func (d *Driver) WriteArchive(w io.Writer) error {
	m := manifest{
		Version:       archiveVersion,
		EntryIndex:    d.EntryIndex,
		EntryLine:     d.EntryLine,
		DataSize:      d.DataSize,
		Code:          d.Output.Code,
		Data:          d.Output.Data,
		CodePositions: d.Positions.Code,
		DataPositions: d.Positions.Data,
		Labels:        sortedLabels(d.Exec.Labels),
		Functions:     sortedProcedures(d.Exec.Functions),
	}
	jsonData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", manifestEntry, err)
	}

	zw := zip.NewWriter(w)
	if err := utils.WriteZipEntry(zw, manifestEntry, jsonData); err != nil {
		return err
	}
	if err := utils.WriteZipEntry(zw, sourceEntry, []byte(d.Source)); err != nil {
		return err
	}
	if err := d.VM.WriteSnapshot(zw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

// ReadArchive loads a driver written by WriteArchive.
func ReadArchive(r io.ReaderAt, size int64) (*Driver, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	fileMap := utils.ZipIndex(zr)

	jsonData, err := utils.ReadZipEntry(fileMap, manifestEntry)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(jsonData, &m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", manifestEntry, err)
	}
	if m.Version != archiveVersion {
		return nil, fmt.Errorf("unsupported archive version %d", m.Version)
	}
	if len(m.Code) != len(m.CodePositions) || len(m.Data) != len(m.DataPositions) {
		return nil, fmt.Errorf("%s: position map does not match output", manifestEntry)
	}

	src, err := utils.ReadZipEntry(fileMap, sourceEntry)
	if err != nil {
		return nil, err
	}
	machine := vm.New()
	if err := machine.ReadSnapshot(fileMap); err != nil {
		return nil, err
	}

	positions := preprocess.PositionMap{Code: m.CodePositions, Data: m.DataPositions}
	labels := make(preprocess.LabelTable, len(m.Labels))
	for _, l := range m.Labels {
		labels[l.Name] = l
	}
	functions := make(preprocess.FunctionTable, len(m.Functions))
	for _, f := range m.Functions {
		functions[f.Name] = f
	}

	return &Driver{
		EntryIndex: m.EntryIndex,
		EntryLine:  m.EntryLine,
		VM:         machine,
		Source:     string(src),
		Positions:  positions,
		Index:      source.NewIndex(string(src)),
		Output:     &preprocess.Output{Code: m.Code, Data: m.Data, Positions: positions},
		Exec:       &ExecContext{Functions: functions, Labels: labels, CallStack: []int{}},
		DataSize:   m.DataSize,
	}, nil
}

func sortedLabels(t preprocess.LabelTable) []preprocess.Label {
	out := make([]preprocess.Label, 0, len(t))
	for _, l := range t {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedProcedures(t preprocess.FunctionTable) []preprocess.Procedure {
	out := make([]preprocess.Procedure, 0, len(t))
	for _, p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
