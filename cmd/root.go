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
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/transcompare/internal/config"
)

var version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "transcompare",
	Short: "Side-by-side comparison of translation providers over spreadsheet text",
	Long: `transcompare reads source strings from a spreadsheet column, sends them to
several translation providers at once and writes every provider's output into
a new sheet next to the source, one column per translator.

Providers are declared in transcompare.yaml (or TRANSCOMPARE_* variables).
Use "transcompare serve" for the HTTP API and "transcompare compare" for a
single run from the command line.`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./transcompare.yaml or ~/.config/transcompare/)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
