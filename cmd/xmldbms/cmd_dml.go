package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
	"github.com/koustreak/xmldbms/internal/sqlgen"
)

// dmlCmd prints the parameterized statements for one table, or for all.
func dmlCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dml [table]",
		Short: "Print INSERT, SELECT, UPDATE and DELETE statements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			tables := s.m.Tables()
			if len(args) == 1 {
				tables = nil
				for _, t := range s.m.Tables() {
					if t.ID().String() == args[0] {
						tables = []*relational.Table{t}
						break
					}
				}
				if tables == nil {
					return errs.Newf(errs.ErrKindNotFound, "table %q is not in the map", args[0])
				}
			}

			g := sqlgen.NewDMLGenerator(s.d)
			out := cmd.OutOrStdout()
			for i, t := range tables {
				st, err := g.StatementsFor(t)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				printStatements(out, t, st)
			}
			return nil
		},
	}
}

func printStatements(w io.Writer, t *relational.Table, st *sqlgen.TableStatements) {
	fmt.Fprintf(w, "-- %s\n", t.ID())
	for _, stmt := range []string{st.Insert, st.Select, st.Update, st.Delete} {
		if stmt != "" {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
	}
}
