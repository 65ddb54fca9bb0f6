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

	"github.com/spf13/cobra"

	"github.com/valpere/transcompare/internal/pipeline"
	"github.com/valpere/transcompare/internal/project"
)

var (
	cmpSpreadsheet string
	cmpGID         int64
	cmpTestName    string
	cmpSourceLang  string
	cmpTargetLang  string
	cmpSourceCol   string
	cmpNotesCol    string
	cmpStartRow    int
	cmpEndRow      int
	cmpTranslators []string
	cmpDryRun      bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run one comparison and write the result sheet",
	Long: `Translate a column of source text with several translators and write the
results to a sheet named after the test.

Each --translator is "provider" or "provider=instructions"; repeat it to add
columns. The same provider may appear more than once with different
instructions.

Examples:
  transcompare compare --spreadsheet 1AbC --gid 0 --name "UI strings v2" \
      --source-col A --notes-col B --start-row 2 --target fr \
      --translator gct --translator gpt="Keep it informal"

  transcompare compare --spreadsheet book --source-col A --start-row 2 \
      --target de --translator deepl --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		translators, err := parseTranslators(cmpTranslators)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		p := project.Project{
			SpreadsheetID:  cmpSpreadsheet,
			GID:            cmpGID,
			TestName:       cmpTestName,
			SourceLanguage: cmpSourceLang,
			TargetLanguage: cmpTargetLang,
			SourceColumn:   cmpSourceCol,
			NotesColumn:    cmpNotesCol,
			StartRow:       cmpStartRow,
			EndRow:         cmpEndRow,
			Translators:    translators,
		}

		if cmpDryRun {
			if p.TestName == "" {
				p.TestName = "dry run"
			}
			res, err := a.project.Preview(ctx, p)
			if err != nil {
				return err
			}
			printSummary(res)
			return printMatrix(res.Matrix)
		}

		out, err := a.project.Execute(ctx, p)
		if err != nil {
			return err
		}
		printSummary(out.Result)
		if out.FormatErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: results written but not formatted: %v\n", out.FormatErr)
		}
		fmt.Printf("Results in sheet %q (gid %d)\n", p.TestName, out.OutputGID)
		if out.SheetURL != "" {
			fmt.Println(out.SheetURL)
		}
		return nil
	},
}

// parseTranslators reads "provider" and "provider=instructions" values.
func parseTranslators(values []string) ([]pipeline.Translator, error) {
	var out []pipeline.Translator
	for _, v := range values {
		provider, instructions, _ := strings.Cut(v, "=")
		provider = strings.TrimSpace(provider)
		if provider == "" {
			return nil, fmt.Errorf("invalid --translator %q: provider is empty", v)
		}
		out = append(out, pipeline.Translator{Provider: provider, Instructions: strings.TrimSpace(instructions)})
	}
	return out, nil
}

func printSummary(res *pipeline.Result) {
	fmt.Fprintf(os.Stderr, "Source %q rows %d-%d (%d rows, %s)\n",
		res.Title, res.Window.Start, res.Window.End, len(res.Rows), res.SourceLang)
	for i, s := range res.Slots {
		label := pipeline.Label(s.Translator, i+1)
		if s.Failed {
			fmt.Fprintf(os.Stderr, "  %-20s failed: %v\n", label, s.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-20s ok (%dms, %d warnings)\n", label, s.Job.Latency.Milliseconds(), s.Job.Warnings)
	}
}

func printMatrix(m pipeline.Matrix) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range m {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = snippet(strings.ReplaceAll(c, "\n", " "), 40)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&cmpSpreadsheet, "spreadsheet", "", "Spreadsheet id (Google) or workbook name (xlsx backend)")
	compareCmd.Flags().Int64Var(&cmpGID, "gid", 0, "Positional id of the source sheet")
	compareCmd.Flags().StringVarP(&cmpTestName, "name", "n", "", "Test name; also the title of the result sheet")
	compareCmd.Flags().StringVarP(&cmpSourceLang, "source", "s", pipeline.AutoLanguage, "Source language code, or auto")
	compareCmd.Flags().StringVarP(&cmpTargetLang, "target", "t", "", "Target language code")
	compareCmd.Flags().StringVar(&cmpSourceCol, "source-col", "A", "Column holding the source text")
	compareCmd.Flags().StringVar(&cmpNotesCol, "notes-col", "", "Column holding translator notes (optional)")
	compareCmd.Flags().IntVar(&cmpStartRow, "start-row", 2, "First row to translate (1-based)")
	compareCmd.Flags().IntVar(&cmpEndRow, "end-row", 0, "Last row to translate; 0 stops at the first blank source cell")
	compareCmd.Flags().StringArrayVar(&cmpTranslators, "translator", nil, `Translator as "provider" or "provider=instructions" (repeatable)`)
	compareCmd.Flags().BoolVar(&cmpDryRun, "dry-run", false, "Print the result matrix instead of writing it")

	compareCmd.MarkFlagRequired("spreadsheet")
	compareCmd.MarkFlagRequired("target")
	compareCmd.MarkFlagRequired("translator")
}
