package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zmk-layout/layoutkit/pkg/diff"
	"github.com/zmk-layout/layoutkit/pkg/layout"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <base-layout.json> <modified-layout.json>",
		Short: "Compare two layout records and print a diff document",
		Long: `The diff command loads two layout JSON files and prints the
layout_diff_v2 document describing how to turn the first into the second.

Example:
  layoutctl diff before.json after.json`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newDiffCmd())
}

func runDiff(cmd *cobra.Command, args []string) error {
	base, err := loadLayout(args[0])
	if err != nil {
		return fmt.Errorf("loading base layout: %w", err)
	}
	modified, err := loadLayout(args[1])
	if err != nil {
		return fmt.Errorf("loading modified layout: %w", err)
	}

	doc := diff.Layouts(base, modified, time.Now().UTC().Format(time.RFC3339))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding diff document: %w", err)
	}
	return nil
}

func loadLayout(path string) (*layout.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l layout.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
