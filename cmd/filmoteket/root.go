// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "filmoteket",
		Short:         "Movie catalog ingestion and reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newImportCommand(&configFlag))
	rootCmd.AddCommand(newFetchCommand(&configFlag))
	rootCmd.AddCommand(newRescanCommand(&configFlag))

	return rootCmd
}
