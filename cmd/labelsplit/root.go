package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "labelsplit",
	Short: "Split merged shipping-label PDFs into per-order files",
	Long: `labelsplit splits a merged shipping-label PDF into one file per page,
naming each output after the tracking number read from the label.

Features:
  - Render pages at a configurable DPI and crop the tracking region
  - Classify USPS / GOFO / UniUni labels by template or region probing
  - Pluggable OCR engines: tesseract, paddle, rapid, remote, vision
  - Look-alike character correction (O/0, I/1, Z/2, B/8)
  - Deterministic page_NNN fallback names when recognition fails`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.labelsplit.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}
