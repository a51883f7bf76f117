package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTablesCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Print the grades, bar sizes and materials of the material table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := root.loadTable()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "CONCRETE\tfcu (N/mm²)")
			for _, g := range tbl.ConcreteGrades() {
				fcu, err := tbl.Concrete(g)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%g\n", g, fcu)
			}

			fmt.Fprintln(tw, "\nSTEEL\tfy (N/mm²)\tprefix")
			for _, g := range tbl.SteelGrades() {
				s, err := tbl.Steel(g)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%g\t%s\n", g, s.Fy, s.Prefix)
			}

			fmt.Fprintln(tw, "\nBAR (mm)\tarea (mm²)")
			for _, b := range tbl.Bars() {
				fmt.Fprintf(tw, "%g\t%g\n", b.Diameter, b.Area)
			}

			fmt.Fprintln(tw, "\nMATERIAL\tkind\tdescription\tunit weight (kN/m³)")
			for _, m := range tbl.Materials() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\n", m.Name, m.Kind, m, m.UnitWeight)
			}
			return tw.Flush()
		},
	}
}
