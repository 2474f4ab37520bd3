// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
