package vm

import (
	"archive/zip"
	"encoding/json"
	"fmt"

	"sicasm/pkg/utils"
)

const (
	stateEntry  = "vm_state.json"
	memoryEntry = "memory.bin"
)

// humanReadableState is the JSON-serializable snapshot of register state.
type humanReadableState struct {
	Regs   [8]uint16 `json:"regs"`
	PC     uint16    `json:"pc"`
	SP     uint16    `json:"sp"`
	Z      bool      `json:"z"`
	N      bool      `json:"n"`
	C      bool      `json:"c"`
	IE     bool      `json:"ie"`
	Halted bool      `json:"halted"`
}

// WriteSnapshot adds vm_state.json and memory.bin to zw. The caller owns zw
// and must close it.
func (v *VM) WriteSnapshot(zw *zip.Writer) error {
	state := humanReadableState{
		Regs:   v.Regs,
		PC:     v.PC,
		SP:     v.SP,
		Z:      v.Z,
		N:      v.N,
		C:      v.C,
		IE:     v.IE,
		Halted: v.Halted,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vm_state: %w", err)
	}
	if err := utils.WriteZipEntry(zw, stateEntry, jsonData); err != nil {
		return err
	}
	return utils.WriteZipEntry(zw, memoryEntry, v.Memory[:])
}

// ReadSnapshot applies the entries written by WriteSnapshot.
func (v *VM) ReadSnapshot(fileMap map[string]*zip.File) error {
	jsonData, err := utils.ReadZipEntry(fileMap, stateEntry)
	if err != nil {
		return err
	}
	var state humanReadableState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal vm_state: %w", err)
	}

	memData, err := utils.ReadZipEntry(fileMap, memoryEntry)
	if err != nil {
		return err
	}
	if len(memData) != len(v.Memory) {
		return fmt.Errorf("memory.bin holds %d bytes, want %d", len(memData), len(v.Memory))
	}

	v.Regs = state.Regs
	v.PC = state.PC
	v.SP = state.SP
	v.Z = state.Z
	v.N = state.N
	v.C = state.C
	v.IE = state.IE
	v.Halted = state.Halted
	copy(v.Memory[:], memData)
	return nil
}
