package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmk-layout/layoutkit/pkg/layermgr"
)

var layerCmd = &cobra.Command{
	Use:   "layer",
	Short: "Add, remove, move, list, or export layers in a layout file",
}

func init() {
	rootCmd.AddCommand(layerCmd)
	layerCmd.AddCommand(newLayerAddCmd())
	layerCmd.AddCommand(newLayerRemoveCmd())
	layerCmd.AddCommand(newLayerMoveCmd())
	layerCmd.AddCommand(newLayerListCmd())
	layerCmd.AddCommand(newLayerExportCmd())
}

func newLayerAddCmd() *cobra.Command {
	var position int
	var copyFrom string
	hasPosition := false

	cmd := &cobra.Command{
		Use:   "add <layout.json> <name>",
		Short: "Add a new layer, optionally copying an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout(args[0])
			if err != nil {
				return err
			}
			opts := layermgr.AddOptions{CopyFrom: copyFrom}
			if hasPosition {
				opts.Position = &position
			}
			if err := layermgr.New(l, nil).Add(args[1], opts); err != nil {
				return err
			}
			return printLayout(l)
		},
	}
	cmd.Flags().IntVar(&position, "position", 0, "Insert position (defaults to append)")
	cmd.Flags().StringVar(&copyFrom, "copy-from", "", "Copy bindings from an existing layer")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		hasPosition = cmd.Flags().Changed("position")
		return nil
	}
	return cmd
}

func newLayerRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <layout.json> <identifier>",
		Short: "Remove layer(s) by index, name, wildcard, or regex",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout(args[0])
			if err != nil {
				return err
			}
			report := layermgr.New(l, nil).Remove(args[1])
			for _, w := range report.Warnings {
				printVerbose("warning: %s\n", w)
			}
			printInfo("removed %d layer(s)\n", report.RemovedCount)
			return printLayout(l)
		},
	}
}

func newLayerMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <layout.json> <name> <new-position>",
		Short: "Move a layer to a new position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout(args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			if err := layermgr.New(l, nil).Move(args[1], pos); err != nil {
				return err
			}
			return printLayout(l)
		},
	}
}

func newLayerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <layout.json>",
		Short: "List layers in sequence order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout(args[0])
			if err != nil {
				return err
			}
			for _, entry := range layermgr.New(l, nil).List() {
				fmt.Printf("%d\t%s\n", entry.Position, entry.Name)
			}
			return nil
		},
	}
}

func newLayerExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <layout.json> <name>",
		Short: "Export a layer as bindings, layer, or full layout JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout(args[0])
			if err != nil {
				return err
			}
			out, err := layermgr.New(l, nil).Export(args[1], layermgr.ExportFormat(format))
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(layermgr.ExportLayer), "Export format: bindings, layer, or full")
	return cmd
}

func parsePosition(s string) (int, error) {
	var pos int
	if _, err := fmt.Sscanf(s, "%d", &pos); err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return pos, nil
}

func printLayout(l any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(l)
}
