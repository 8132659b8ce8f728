package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/diff"
	"github.com/zmk-layout/layoutkit/pkg/patch"
)

func newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <base-layout.json> <diff-document.json>",
		Short: "Apply a layout_diff_v2 document onto a base layout",
		Long: `The patch command is the inverse of diff: it loads a base layout and
a diff document produced by "layoutctl diff", and prints the resulting layout.

Example:
  layoutctl patch before.json diff.json > after.json`,
		Args: cobra.ExactArgs(2),
		RunE: runPatch,
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newPatchCmd())
}

func runPatch(cmd *cobra.Command, args []string) error {
	base, err := loadLayout(args[0])
	if err != nil {
		return fmt.Errorf("loading base layout: %w", err)
	}

	docData, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("loading diff document: %w", err)
	}
	var doc diff.Document
	if err := json.Unmarshal(docData, &doc); err != nil {
		return fmt.Errorf("decoding diff document: %w", err)
	}

	collector := diag.NewCollector()
	result := patch.Apply(collector, base, &doc)

	for _, d := range collector.Diagnostics {
		printVerbose("warning: %s\n", d.Message)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encoding patched layout: %w", err)
	}
	return nil
}
