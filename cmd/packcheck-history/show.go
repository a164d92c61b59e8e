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
	"strings"

	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/report"
	"github.com/google/packcheck/reportstore"
	"github.com/google/packcheck/violation"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (a *app) newShowCmd() *cobra.Command {
	var (
		minSeverity string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show the violations of one saved scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minimum := violation.SeverityUnspecified
			if minSeverity != "" {
				var err error
				if minimum, err = violation.ParseSeverity(minSeverity); err != nil {
					return err
				}
			}
			return a.withStore(func(s *reportstore.Store) error {
				rep, err := s.Get(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					filtered := *rep
					filtered.Violations = rep.AtLeast(minimum)
					if filtered.Violations == nil {
						filtered.Violations = []violation.Violation{}
					}
					return report.Write(cmd.OutOrStdout(), &filtered)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "scan %s: %s\n", rep.ScanID, rep.Outcome)
				if rep.Reason != "" {
					fmt.Fprintf(out, "reason: %s\n", rep.Reason)
				}
				table := tablewriter.NewWriter(out)
				table.SetHeader([]string{"Severity", "Check", "Packages", "Description"})
				table.SetBorder(false)
				table.SetCenterSeparator("")
				table.SetAutoWrapText(false)
				for _, v := range rep.AtLeast(minimum) {
					table.Append([]string{
						v.Severity.String(),
						v.Check,
						strings.Join(packageid.Strings(v.Packages), " "),
						v.Description,
					})
				}
				table.Render()
				for _, w := range rep.Warnings {
					fmt.Fprintf(out, "warning: %s\n", w)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "only show violations of at least this severity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
