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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/transcompare/internal/store"
)

var (
	historyDBPath      string
	historyTestName    string
	historySpreadsheet string
	historyLimit       int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded comparison runs",
	Long:  `List past comparison runs and aggregate provider statistics from the SQLite run history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), store.RunFilter{
			TestName:      historyTestName,
			SpreadsheetID: historySpreadsheet,
			Limit:         historyLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tTEST\tSOURCE\tTARGET\tROWS\tSLOTS\tFAILED\tSTATUS")
		for _, r := range runs {
			failed := 0
			for _, s := range r.Slots {
				if s.Failed {
					failed++
				}
			}
			status := r.Status
			if r.Error != "" {
				status += ": " + snippet(r.Error, 60)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), snippet(r.TestName, 30),
				r.SourceLang, r.TargetLang, r.RowCount, len(r.Slots), failed, status)
		}
		return w.Flush()
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-provider failure rates and latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := db.ProviderStats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to compute stats: %w", err)
		}

		if len(st) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tSLOTS\tFAILURES\tWARNINGS\tMEAN\tMEDIAN")
		for _, s := range st {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
				s.Provider, s.Slots, s.Failures, s.Warnings, s.MeanLatency, s.MedianLatency)
		}
		return w.Flush()
	},
}

// openHistory opens --db, falling back to the configured db_path.
func openHistory() (*store.Store, error) {
	path := historyDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.DBPath
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "", "Path to the SQLite run history (default: db_path from config)")
	historyListCmd.Flags().StringVar(&historyTestName, "test", "", "Only runs with this test name")
	historyListCmd.Flags().StringVar(&historySpreadsheet, "spreadsheet", "", "Only runs against this spreadsheet")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs; 0 for all")
}
