package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"sicasm/pkg/driver"
	"sicasm/pkg/watch"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check file...",
		Short: "Assemble files and report the first error in each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := opts.check(path); err != nil {
					if err != errReported {
						opts.report(path, err)
					}
					failed++
				}
			}
			if failed > 0 {
				glog.V(1).Infof("check: %d of %d files failed", failed, len(args))
				return errReported
			}
			return nil
		},
	}
}

func (o *options) check(path string) error {
	d, err := o.assemble(path)
	if err != nil {
		return err
	}
	color := useColor(o.settings.Color, o.stdout)
	fmt.Fprintf(o.stdout, "%s: %s (%d instructions, %d data bytes, entry at line %d)\n",
		path, paint(color, ansiGreen, "ok"), len(d.Output.Code), d.DataSize, d.EntryLine)
	return nil
}

// summary is the view of a driver printed by dump.
type summary struct {
	Entry      int
	EntryLine  int
	Code       []string
	Data       []string
	DataSize   int
	Labels     map[string]string
	Procedures map[string]string
}

func summarize(d *driver.Driver) summary {
	s := summary{
		Entry:      d.EntryIndex,
		EntryLine:  d.EntryLine,
		Code:       d.Output.Code,
		Data:       d.Output.Data,
		DataSize:   d.DataSize,
		Labels:     make(map[string]string, len(d.Exec.Labels)),
		Procedures: make(map[string]string, len(d.Exec.Functions)),
	}
	for name, l := range d.Exec.Labels {
		s.Labels[name] = fmt.Sprintf("%s %d", l.Kind, l.Target)
	}
	for name, p := range d.Exec.Functions {
		s.Procedures[name] = fmt.Sprintf("[%d, %d)", p.Start, p.End)
	}
	return s
}

func newDumpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump file",
		Short: "Pretty-print the execution driver built from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.assemble(args[0])
			if err != nil {
				return err
			}
			printer := pp.New()
			printer.SetColoringEnabled(useColor(opts.settings.Color, opts.stdout))
			printer.SetOutput(opts.stdout)
			printer.Println(summarize(d))
			return nil
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list file",
		Short: "Print an assembly listing with source lines, symbols and data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.assemble(args[0])
			if err != nil {
				return err
			}
			return d.Listing(opts.stdout)
		},
	}
}

func newSnapshotCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot file",
		Short: "Write the execution driver to a ZIP archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.assemble(args[0])
			if err != nil {
				return err
			}
			target := out
			if target == "" {
				target = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".zip"
			}

			f, err := os.Create(target)
			if err != nil {
				return err
			}
			if err := d.WriteArchive(f); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", target, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "snapshot -> %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "archive path (default: input with .zip extension)")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch file",
		Short: "Re-check a file every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			rerun := func(string) {
				if err := opts.check(path); err != nil && err != errReported {
					opts.report(path, err)
				}
			}

			w, err := watch.New(path, rerun)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rerun(path)
			fmt.Fprintf(opts.stderr, "watching %s (macro depth %d), press Ctrl-C to stop\n",
				path, opts.settings.MacroDepth)
			return w.Run(ctx)
		},
	}
}
