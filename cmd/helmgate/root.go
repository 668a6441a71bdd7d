// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root helmgate command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "helmgate",
		Short:         "Helmgate — LLM API gateway with scored routing and failover",
		Long:          "Helmgate routes chat requests across multiple LLM providers, scoring upstreams on latency, reliability, cost and adaptive feedback, and failing over automatically when an upstream misbehaves.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}
