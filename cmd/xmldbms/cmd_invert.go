package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/xmldbms/internal/inverter"
	"github.com/koustreak/xmldbms/internal/mapping"
)

// invertCmd derives the table view from the class maps and prints it.
func invertCmd(opts *options) *cobra.Command {
	var roundTrip bool

	cmd := &cobra.Command{
		Use:   "invert",
		Short: "Derive and print the table-centric view of the map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			inv := inverter.New(s.log)
			report, err := inv.CreateDatabaseView(s.m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTableView(out, s.m)
			printReport(out, s.m, report)

			if roundTrip {
				back, err := inv.CreateXMLView(s.m)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nround trip: %d class maps from %d class table maps\n", back.ClassMaps, back.ClassTableMaps)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&roundTrip, "round-trip", false, "Rebuild the class maps from the derived table view")
	return cmd
}

func printTableView(w io.Writer, m *mapping.Map) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, ct := range m.ClassTableMaps() {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t<- %s\n", ct.Table().ID(), m.QualifiedName(ct.ElementTypeName()))
		if bt := ct.BaseTable(); bt != nil {
			fmt.Fprintf(tw, "  base\t%s\n", bt.ID())
		}
		for _, cm := range ct.ColumnMaps() {
			fmt.Fprintf(tw, "  column %s\t%s %s%s\n", cm.Column().Name(), cm.Kind(), m.QualifiedName(cm.Name()), insertion(cm.ElementInsertionList()))
		}
		for _, pm := range ct.PropertyTableMaps() {
			fmt.Fprintf(tw, "  table %s\t%s %s%s\n", pm.Table().ID(), pm.Kind(), m.QualifiedName(pm.Name()), insertion(pm.ElementInsertionList()))
		}
		for _, rm := range ct.RelatedClassTableMaps() {
			fmt.Fprintf(tw, "  related %s\telement %s%s\n", rm.ClassTableMap().Table().ID(), m.QualifiedName(rm.Name()), insertion(rm.ElementInsertionList()))
		}
	}
	tw.Flush()
}

func insertion(l *mapping.ElementInsertionList) string {
	if l == nil {
		return ""
	}
	return " (in " + l.String() + ")"
}

func printReport(w io.Writer, m *mapping.Map, r *inverter.Report) {
	for _, name := range r.Skipped {
		fmt.Fprintf(w, "skipped: %s uses another class map\n", m.QualifiedName(name))
	}
	for _, path := range r.EmptyInlines {
		fmt.Fprintf(w, "skipped: inline %s has no content\n", path)
	}
}
