// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Start the gateway and connector servers together",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAll()
	},
}

// runAll runs both servers in one process; the first to fail takes the
// process down.
func runAll() error {
	var g errgroup.Group
	g.Go(runGateway)
	g.Go(runConnector)
	return g.Wait()
}
