package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/schema"
)

// checkCmd compares the mapped tables with the connected database.
func checkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compare mapped tables with the live database (requires --live)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.live {
				return errs.New(errs.ErrKindInvalidInput, "check requires --live")
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := schema.NewReader(s.cfg.Database.Driver, s.db)
			if err != nil {
				return err
			}
			drifts, err := schema.Compare(cmd.Context(), r, s.m.Tables())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(drifts) == 0 {
				fmt.Fprintln(out, "No differences.")
				return nil
			}
			for _, d := range drifts {
				fmt.Fprintln(out, d)
			}
			return errs.Newf(errs.ErrKindConflict, "%d differences from the live database", len(drifts))
		},
	}
}
