package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parcelops/labelsplit/internal/logger"
	"github.com/parcelops/labelsplit/internal/stamper"
)

// stampCmd represents the stamp command
var stampCmd = &cobra.Command{
	Use:   "stamp [input.pdf]",
	Short: "Stamp a SKU quantity footer on every page",
	Long: `Stamp a packing footer at the bottom center of every page.

The --spec flag takes a label spec of the form "{sku}-{x}单{y}个" (x
orders of y units each); the footer shows the SKU with the reduced
units-per-order ratio, e.g. SKU1, SKU1*3 or SKU1*3/2. Use --text to
stamp a literal string instead.

Examples:
  labelsplit stamp labels.pdf --spec "ABC123-2单6个" --output stamped.pdf
  labelsplit stamp labels.pdf --text "ABC123*3" --output stamped.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runStamp,
}

func init() {
	rootCmd.AddCommand(stampCmd)

	flags := stampCmd.Flags()
	flags.String("output", "", "output PDF path (required)")
	flags.String("spec", "", "label spec {sku}-{x}单{y}个")
	flags.String("text", "", "literal footer text")

	_ = stampCmd.MarkFlagRequired("output")
}

func runStamp(cmd *cobra.Command, args []string) error {
	log, err := logger.New(&logger.Config{
		Level:  viper.GetString("log-level"),
		Format: "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	spec, _ := cmd.Flags().GetString("spec")
	text, _ := cmd.Flags().GetString("text")

	if (spec == "") == (text == "") {
		return fmt.Errorf("exactly one of --spec and --text is required")
	}

	st := stamper.New(&stamper.Config{Logger: log})

	if spec != "" {
		if err := st.Stamp(inputPath, outputPath, spec); err != nil {
			return err
		}
	} else {
		if err := st.StampText(inputPath, outputPath, text); err != nil {
			return err
		}
	}

	fmt.Printf("Stamped %s -> %s\n", inputPath, outputPath)
	return nil
}
