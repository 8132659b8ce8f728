package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmk-layout/layoutkit/pkg/importer"
)

var (
	importKeyboard string
	importTitle    string
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <keymap-file>",
		Short: "Import a Devicetree .keymap file into a layout record",
		Long: `The import command parses a ZMK .keymap file and prints the
resulting layout record as JSON.

Example:
  layoutctl import corne.keymap --keyboard corne --title "My Layout"`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	cmd.Flags().StringVar(&importKeyboard, "keyboard", "keyboard", "Keyboard identifier stamped on the layout")
	cmd.Flags().StringVar(&importTitle, "title", "Imported Layout", "Title stamped on the layout")
	return cmd
}

func init() {
	rootCmd.AddCommand(newImportCmd())
}

func runImport(cmd *cobra.Command, args []string) error {
	sourceFile := args[0]
	source, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourceFile, err)
	}

	printVerbose("Parsing %s...\n", sourceFile)
	result := importer.Full(importKeyboard, importTitle, sourceFile, source)

	for _, w := range result.Warnings {
		printVerbose("warning: %s\n", w.Message)
	}
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e.Message)
		}
		return fmt.Errorf("import failed for %s", sourceFile)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Layout); err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}

	printInfo("✓ imported %d layer(s), %d hold-tap(s), %d macro(s), %d combo(s)\n",
		len(result.Layout.LayerNames), len(result.Layout.HoldTaps), len(result.Layout.Macros), len(result.Layout.Combos))
	return nil
}
