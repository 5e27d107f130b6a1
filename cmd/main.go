package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agrisense",
	Short: "AgriSense - environmental advisories and crop alerts",
	Long: `AgriSense turns environmental snapshots for a field location into
crop advisories, weather and advisory alerts, and a persisted notification log.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
