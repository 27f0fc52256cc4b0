// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/arangodb/vocserver/layout"
)

const (
	inspectFormatPretty = "pretty"
	inspectFormatJSON   = "json"
)

var inspectParams = struct {
	dataDir string
	format  *enumFlag
}{
	format: newEnumFlag(inspectFormatPretty, []string{inspectFormatPretty, inspectFormatJSON}),
}

var inspectCommand = &cobra.Command{
	Use:   "inspect <database-name>",
	Short: "Print a database's on-disk descriptor",
	Long:  `Open a data directory read-only and print a database's parameter.json descriptor.`,
	PreRunE: func(_ *cobra.Command, args []string) error {
		if inspectParams.dataDir == "" {
			return fmt.Errorf("--data-dir is required")
		}
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one database name")
		}
		return nil
	},
	Run: func(_ *cobra.Command, args []string) {
		os.Exit(inspect(inspectParams.dataDir, args[0], os.Stdout, os.Stderr))
	},
}

func inspect(dataDir string, name string, stdout, stderr io.Writer) int {
	fs := afero.NewOsFs()
	paths := layout.NewPaths(dataDir)

	dirs, err := layout.ListDatabaseDirs(fs, paths.DatabasePath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	for _, dirName := range dirs {
		desc, ok, err := layout.ReadDescriptor(fs, filepath.Join(paths.DatabasePath, dirName))
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if !ok || desc.Name != name {
			continue
		}
		return printDescriptor(desc, stdout, stderr)
	}

	fmt.Fprintf(stderr, "no database named %q found under %s\n", name, dataDir)
	return 1
}

func printDescriptor(desc layout.Descriptor, stdout, stderr io.Writer) int {
	switch inspectParams.format.String() {
	case inspectFormatJSON:
		bs, err := json.MarshalIndent(desc, "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, string(bs))
	default:
		fmt.Fprintf(stdout, "id:         %s\n", desc.ID)
		fmt.Fprintf(stdout, "name:       %s\n", desc.Name)
		fmt.Fprintf(stdout, "deleted:    %t\n", desc.Deleted)
		fmt.Fprintf(stdout, "properties: %s\n", string(desc.Properties))
	}
	return 0
}

func init() {
	inspectCommand.Flags().StringVar(&inspectParams.dataDir, "data-dir", "", "path to the data directory")
	inspectCommand.Flags().VarP(inspectParams.format, "format", "f", "set output format: pretty or json")

	RootCommand.AddCommand(inspectCommand)
}
