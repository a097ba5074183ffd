package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "product-matcher",
	Short: "Find catalog products that look like a photo",
	Long: `Product Matcher serves a product catalog and answers visual searches:
given a photo of a product, it finds the catalog products whose stored image
looks the same or similar, by comparing small greyscale thumbnails pixel by pixel.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
