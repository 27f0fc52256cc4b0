// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cmd implements the vocserver command-line entry points.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCommand is the base command every subcommand attaches to.
var RootCommand = &cobra.Command{
	Use:   "vocserver",
	Short: "vocserver manages an embedded, multi-tenant document database directory",
}

// Execute runs the root command, exiting the process on error the same
// way OPA's own main does.
func Execute() {
	if err := RootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
