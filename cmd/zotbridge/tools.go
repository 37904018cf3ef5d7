package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/entrhq/zotbridge/pkg/mcp"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the server exposes",
	Long:  `List the tools left after the allowed/denied filters. With --json, print the full tools/list reply including input schemas.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		server, err := mcp.NewServer(mcp.Options{Name: "zotbridge", Version: version}, a.registry)
		if err != nil {
			return err
		}
		descriptors := server.Tools()

		out := cmd.OutOrStdout()
		if toolsJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(map[string]any{"tools": descriptors})
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, d := range descriptors {
			fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Output in JSON format")
}
