package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/premium/importer"
	"Civcalc/internal/calc/report"
	"Civcalc/internal/calc/takeoff"
	"Civcalc/internal/logging"
)

type takeoffOpts struct {
	xlsx   string
	pdf    string
	author string
}

func newTakeoffCmd(root *rootOpts) *cobra.Command {
	var opts takeoffOpts

	cmd := &cobra.Command{
		Use:   "takeoff [file]",
		Short: "Build a bill of quantities from a JSON or XLSX component file (- for JSON on stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTakeoff(cmd, root, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "also write the bill as an XLSX workbook to this file")
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "also write the bill as a PDF report to this file")
	cmd.Flags().StringVar(&opts.author, "author", "", "author for the PDF title block")

	return cmd
}

// readTakeoff reads a JSON request, or a workbook when path ends in .xlsx.
func readTakeoff(cmd *cobra.Command, path string) (takeoff.Input, *importer.Workbook, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		var in takeoff.Input
		err := readJSON(cmd, path, &in)
		return in, nil, err
	}
	f, err := open(cmd, path)
	if err != nil {
		return takeoff.Input{}, nil, err
	}
	defer f.Close()
	wb, err := importer.Read(f)
	if err != nil {
		return takeoff.Input{}, nil, fmt.Errorf("import %s: %w", path, err)
	}
	return wb.Input, &wb, nil
}

func runTakeoff(cmd *cobra.Command, root *rootOpts, path string, opts takeoffOpts) error {
	log := logging.FromContext(cmd.Context())

	tbl, err := root.loadTable()
	if err != nil {
		return err
	}
	in, wb, err := readTakeoff(cmd, path)
	if err != nil {
		return err
	}
	resp, err := takeoff.NewEngine(tbl, boq.DefaultCatalogue()).CalculateInput(in)
	if err != nil {
		if wb != nil {
			err = wb.Locate(err)
		}
		return err
	}
	log.Debug("takeoff", "components", len(in.Components), "items", len(resp.Items))

	if opts.xlsx != "" {
		if err := writeFile(opts.xlsx, func(w io.Writer) error { return report.WriteBOQ(w, resp) }); err != nil {
			return err
		}
		log.Info("wrote workbook", "path", opts.xlsx)
	}
	if opts.pdf != "" {
		meta := report.Meta{Project: resp.Project.Name, Author: opts.author}
		if err := writeFile(opts.pdf, func(w io.Writer) error { return report.BOQPDF(w, meta, resp) }); err != nil {
			return err
		}
		log.Info("wrote report", "path", opts.pdf)
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}
