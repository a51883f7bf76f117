// Package cli implements the civcalc command line: structural design and
// quantity takeoff from JSON request files, without the HTTP service.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"Civcalc/internal/calc/material"
	"Civcalc/internal/logging"
)

var version = "dev"

// SetVersion sets the version shown by --version.
func SetVersion(v string) { version = v }

type rootOpts struct {
	verbose bool
	table   string
}

// NewRoot builds the command tree. The logger writes to the command's
// error stream, at debug level with --verbose.
func NewRoot() *cobra.Command {
	opts := &rootOpts{table: os.Getenv("MATERIAL_TABLE")}

	root := &cobra.Command{
		Use:          "civcalc",
		Short:        "BS 8110 member design and bills of quantities",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logging.New(cmd.ErrOrStderr(), level)))
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.table, "table", opts.table, "material table TOML file (default: embedded BS 8110)")

	root.AddCommand(newDesignCmd(opts))
	root.AddCommand(newTakeoffCmd(opts))
	root.AddCommand(newTablesCmd(opts))
	return root
}

func (o *rootOpts) loadTable() (*material.Table, error) {
	if o.table == "" {
		return material.Default()
	}
	return material.Load(o.table)
}

// open returns the named input file, or stdin for "-".
func open(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	f, err := open(cmd, path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFile creates path and renders into it.
func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
