package cli

import (
	"io"

	"github.com/spf13/cobra"

	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calc/design"
	"Civcalc/internal/calc/premium/autodesign"
	"Civcalc/internal/calc/report"
	"Civcalc/internal/logging"
)

type designOpts struct {
	pdf      string
	meta     report.Meta
	size     bool
	maxDepth float64
}

func newDesignCmd(root *rootOpts) *cobra.Command {
	var opts designOpts

	cmd := &cobra.Command{
		Use:   "design [file]",
		Short: "Design a member from a JSON analysis and parameters file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesign(cmd, root, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "also write a PDF design report to this file")
	cmd.Flags().StringVar(&opts.meta.Project, "project", "", "project name for the report title block")
	cmd.Flags().StringVar(&opts.meta.Author, "author", "", "author for the report title block")
	cmd.Flags().BoolVar(&opts.size, "size", false, "search for the shallowest beam depth that passes")
	cmd.Flags().Float64Var(&opts.maxDepth, "max-depth", 0, "deepest section tried by --size, in mm")

	return cmd
}

func runDesign(cmd *cobra.Command, root *rootOpts, path string, opts designOpts) error {
	log := logging.FromContext(cmd.Context())

	tbl, err := root.loadTable()
	if err != nil {
		return err
	}
	e := design.NewEngine(tbl, arrange.New(tbl, arrange.DefaultConfig()))

	var in design.Input
	if err := readJSON(cmd, path, &in); err != nil {
		return err
	}

	var res design.Result
	if opts.size {
		sized, err := autodesign.Size(e, autodesign.Input{Input: in, MaxDepth: opts.maxDepth})
		if err != nil {
			return err
		}
		log.Info("sized section", "depth_mm", sized.Depth, "trials", sized.Trials)
		res = sized.Design
	} else if res, err = e.CalculateInput(in); err != nil {
		return err
	}
	log.Debug("designed", "element", res.Element, "code", res.Code)

	if opts.pdf != "" {
		if err := writeFile(opts.pdf, func(w io.Writer) error { return report.DesignPDF(w, opts.meta, res) }); err != nil {
			return err
		}
		log.Info("wrote report", "path", opts.pdf)
	}
	return writeJSON(cmd.OutOrStdout(), res)
}
