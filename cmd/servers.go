package cmd

import (
	"fmt"

	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/spf13/cobra"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the known tile servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, s := range tile.Servers() {
			marker := " "
			if s.Name == tile.DefaultServer {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-20s %s\n", marker, s.Name, s.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serversCmd)
}
