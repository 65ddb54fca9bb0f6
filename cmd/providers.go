/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/transcompare/internal/jobs"
)

var (
	providersCheck   bool
	providersTimeout time.Duration
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured translation providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ids := cfg.ProviderIDs()
		if len(ids) == 0 {
			fmt.Println("No providers configured.")
			return nil
		}

		var health map[string]jobs.Health
		if providersCheck {
			engine, err := cfg.NewEngine(cfg.NewLogger(os.Stderr), nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), providersTimeout)
			defer cancel()
			health = make(map[string]jobs.Health, len(ids))
			for _, h := range engine.Health(ctx) {
				health[h.ID] = h
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if providersCheck {
			fmt.Fprintln(w, "ID\tTYPE\tMODEL\tENDPOINT\tSTATUS\tLANGUAGES")
		} else {
			fmt.Fprintln(w, "ID\tTYPE\tMODEL\tENDPOINT")
		}
		for _, id := range ids {
			p := cfg.Providers[id]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s", id, p.Type, orDash(p.Model), orDash(p.BaseURL))
			if providersCheck {
				h := health[id]
				fmt.Fprintf(w, "\t%s\t%s", availability(h.Err), orDash(strings.Join(h.Languages, ",")))
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	},
}

func init() {
	providersCmd.Flags().BoolVar(&providersCheck, "check", false, "probe each provider and list its languages")
	providersCmd.Flags().DurationVar(&providersTimeout, "timeout", 10*time.Second, "deadline for --check")
	rootCmd.AddCommand(providersCmd)
}

func availability(err error) string {
	if err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
