// Package main provides the xmldbms command line.
//
// Usage:
//
//	xmldbms ddl    --map orders.yaml [--live] [--skip-existing]
//	xmldbms dml    --map orders.yaml [table]
//	xmldbms invert --map orders.yaml
//	xmldbms serve  --map orders.yaml [--addr :8080]
//	xmldbms check  --map orders.yaml --live
//
// --map takes a file path, or store:<key> to read the definition from the
// configured object store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// options holds the persistent flags shared by every command.
type options struct {
	configFile string
	envFile    string
	mapSource  string
	live       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "xmldbms",
		Short:         "Map XML documents to relational tables",
		Long:          `xmldbms compiles a map between XML element types and database tables, inverts it between its document and table views, and generates the DDL and DML that go with it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Path to config file")
	pf.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before the config (ignored when missing)")
	pf.StringVarP(&opts.mapSource, "map", "m", "", "Map definition file, or store:<key>")
	pf.BoolVar(&opts.live, "live", false, "Derive the SQL dialect from the configured database")

	rootCmd.AddCommand(
		ddlCmd(opts),
		dmlCmd(opts),
		invertCmd(opts),
		serveCmd(opts),
		checkCmd(opts),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
