package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
	"github.com/koustreak/xmldbms/internal/sqlgen"
)

// ddlCmd prints CREATE TABLE statements for every mapped table.
func ddlCmd(opts *options) *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print CREATE TABLE statements, referenced tables first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipExisting && !opts.live {
				return errs.New(errs.ErrKindInvalidInput, "--skip-existing requires --live")
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var src sqlgen.TableSource = s.m
			if skipExisting {
				existing, err := database.ExistingTables(cmd.Context(), s.db, s.m.Tables())
				if err != nil {
					return err
				}
				for id := range existing {
					s.log.Infof("skipping existing table %s", id)
				}
				src = missingTables{src: s.m, existing: existing}
			}

			stmts, err := sqlgen.NewDDLGenerator(s.d, s.log).StatementsForAllTables(src)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, stmt := range stmts {
				fmt.Fprintf(out, "%s;\n", stmt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Omit tables the connected database already has")
	return cmd
}

// missingTables filters out tables that already exist.
type missingTables struct {
	src      sqlgen.TableSource
	existing map[relational.TableID]bool
}

func (t missingTables) Tables() []*relational.Table {
	var out []*relational.Table
	for _, tbl := range t.src.Tables() {
		if !t.existing[tbl.ID()] {
			out = append(out, tbl)
		}
	}
	return out
}
