// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"time"

	"github.com/google/packcheck/reportstore"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (a *app) newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved scans, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *reportstore.Store) error {
				summaries, err := s.List()
				if err != nil {
					return err
				}
				if limit > 0 && len(summaries) > limit {
					summaries = summaries[len(summaries)-limit:]
				}
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Scan ID", "Saved at", "Outcome", "Violations", "Max severity"})
				table.SetBorder(false)
				table.SetCenterSeparator("")
				table.SetAutoWrapText(false)
				for _, sum := range summaries {
					table.Append([]string{
						sum.ScanID,
						sum.SavedAt.UTC().Format(time.RFC3339),
						string(sum.Outcome),
						fmt.Sprintf("%d", sum.Violations),
						sum.MaxSeverity.String(),
					})
				}
				table.SetFooter([]string{fmt.Sprintf("Total %d", len(summaries)), "", "", "", ""})
				table.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "only list the most recent scans")
	return cmd
}
