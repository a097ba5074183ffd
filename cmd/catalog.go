package cmd

import (
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance commands",
	Long:  `Commands for inspecting the product catalog and its stored images.`,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
