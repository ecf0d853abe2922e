// Package cli implements the sicasm command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"sicasm/pkg/driver"
	"sicasm/pkg/utils"
)

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("assembly failed")

type options struct {
	settings Settings
	stdout   io.Writer
	stderr   io.Writer
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{settings: LoadSettings(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sicasm",
		Short: "Assembler front end for the SIC virtual machine",
		Long: `Sicasm strips comments, expands macros, resolves labels and loads the
data segment of an assembly program, producing the execution driver the
virtual machine starts from. Every failure is reported with the line and
column it came from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// glog only honours its flags once the go flag set is parsed.
			if !flag.Parsed() {
				flag.CommandLine.Parse(nil)
			}
			return opts.settings.Validate()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.IntVar(&opts.settings.MacroDepth, "macro-depth", opts.settings.MacroDepth,
		"maximum nesting of macro expansions ($SICASM_MACRO_DEPTH)")
	pf.StringVar(&opts.settings.Color, "color", opts.settings.Color,
		"colour output: auto, always or never ($SICASM_COLOR, $NO_COLOR)")
	pf.AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newCheckCmd(opts),
		newDumpCmd(opts),
		newListCmd(opts),
		newSnapshotCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	defer glog.Flush()
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// assemble reads and assembles one file. Assembly errors are printed to
// stderr and turned into errReported.
func (o *options) assemble(path string) (*driver.Driver, error) {
	fullPath, src, err := utils.ReadSource(path)
	if err != nil {
		return nil, err
	}
	d, err := driver.New(o.settings.DriverConfig()).Preprocess(src)
	if err != nil {
		o.report(fullPath, err)
		return nil, errReported
	}
	return d, nil
}

func (o *options) report(path string, err error) {
	glog.Warningf("%s: %v", path, err)
	color := useColor(o.settings.Color, o.stderr)
	fmt.Fprintf(o.stderr, "%s:\n%s\n", paint(color, ansiBold, path), paint(color, errorColor(err), err.Error()))
}
