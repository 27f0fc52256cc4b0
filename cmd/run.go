// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/server"
)

var runParams = struct {
	dataDir  string
	logLevel *enumFlag
	metrics  bool
}{
	logLevel: newEnumFlag("info", []string{"debug", "info", "warn", "error"}),
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Start the server and block until a shutdown signal is received",
	Long:  `Start the server and block until a shutdown signal is received.`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if runParams.dataDir == "" {
			return fmt.Errorf("--data-dir is required")
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		os.Exit(run(runParams.dataDir))
	},
}

func run(dataDir string) int {
	logger := logging.New(parseLevel(runParams.logLevel.String()))

	s := server.CreateServer(logger)
	if runParams.metrics {
		s.WithPrometheus(prometheus.DefaultRegisterer)
	}

	if err := s.InitServer(dataDir, nil); err != nil {
		logger.Error("failed to initialize server: %v", err)
		return 1
	}

	if err := s.StartServer(); err != nil {
		logger.Error("failed to start server: %v", err)
		return 1
	}

	logger.Info("server started, serving data directory %s", dataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping server")
	if err := s.StopServer(); err != nil {
		logger.Error("error during shutdown: %v", err)
		return 1
	}

	return 0
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.Debug
	case "warn":
		return logging.Warn
	case "error":
		return logging.Error
	default:
		return logging.Info
	}
}

func init() {
	runCommand.Flags().StringVar(&runParams.dataDir, "data-dir", "", "path to the data directory")
	runCommand.Flags().VarP(runParams.logLevel, "log-level", "l", "set log level")
	runCommand.Flags().BoolVar(&runParams.metrics, "metrics", false, "register Prometheus metrics with the default registerer")

	RootCommand.AddCommand(runCommand)
}
