package cli

import (
	"fmt"
	"strings"

	"github.com/xyproto/env/v2"

	"sicasm/pkg/driver"
	"sicasm/pkg/preprocess"
)

// Colour modes accepted by --color and SICASM_COLOR.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Settings is the CLI configuration. Flags override the environment, which
// overrides the defaults.
type Settings struct {
	MacroDepth int
	Color      string
}

// LoadSettings reads SICASM_MACRO_DEPTH, SICASM_COLOR and NO_COLOR.
func LoadSettings() Settings {
	return newSettings(
		env.Int("SICASM_MACRO_DEPTH", preprocess.DefaultMaxMacroDepth),
		env.Str("SICASM_COLOR", ColorAuto),
		env.Has("NO_COLOR"),
	)
}

func newSettings(depth int, color string, noColor bool) Settings {
	s := Settings{MacroDepth: depth, Color: strings.ToLower(strings.TrimSpace(color))}
	if s.Color == "" {
		s.Color = ColorAuto
	}
	if noColor && s.Color == ColorAuto {
		s.Color = ColorNever
	}
	return s
}

// Validate rejects settings the pipeline cannot run with.
func (s Settings) Validate() error {
	if s.MacroDepth < 1 {
		return fmt.Errorf("macro depth must be at least 1, got %d", s.MacroDepth)
	}
	switch s.Color {
	case ColorAuto, ColorAlways, ColorNever:
		return nil
	}
	return fmt.Errorf("unknown color mode %q (want %s, %s or %s)", s.Color, ColorAuto, ColorAlways, ColorNever)
}

// DriverConfig converts the settings into a pipeline configuration.
func (s Settings) DriverConfig() driver.Config {
	return driver.Config{MaxMacroDepth: s.MacroDepth}
}
