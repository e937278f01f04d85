package commands

import (
	"fmt"

	"memexporter/lib/serviceutil"
	"memexporter/services/memexport/export"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <export.json>",
	Short: "Re-renders a json export (or a raw captured API dump) as a readable text report.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		txtPath, err := export.ConvertJSON(args[0])
		if err != nil {
			serviceutil.Fatal("conversion failed", err)
		}
		fmt.Printf("wrote %s\n", txtPath)
	},
}
