package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parcelops/labelsplit/internal/classify"
	"github.com/parcelops/labelsplit/internal/config"
	"github.com/parcelops/labelsplit/internal/logger"
	"github.com/parcelops/labelsplit/internal/match"
	"github.com/parcelops/labelsplit/internal/render"
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect [input.pdf]",
	Short: "Report template match scores for every page",
	Long: `Render every page and report the best template match score per
carrier, with a per-carrier match count summary.

Unlike split, detect scores the whole stepped window grid on every page
instead of stopping at the first match, so it is the tool for tuning
template images and thresholds.

Examples:
  labelsplit detect labels.pdf --template-usps usps.png --template-gofo gofo.png
  labelsplit detect labels.pdf --template-uni uni.png --template-mode ncc`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	flags := detectCmd.Flags()
	flags.Int("dpi", 150, "page render resolution")
	flags.String("template-usps", "", "USPS template image path")
	flags.String("template-gofo", "", "GOFO template image path")
	flags.String("template-uni", "", "UniUni template image path")
	flags.String("template-mode", "diff", "template scoring mode (diff, ncc)")
	flags.Float64("template-threshold", 0, "template match threshold (0 = mode default)")
}

func runDetect(cmd *cobra.Command, args []string) error {
	log, err := logger.New(&logger.Config{
		Level:  viper.GetString("log-level"),
		Format: "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	flags := cmd.Flags()
	tplCfg := &config.TemplateConfig{}
	tplCfg.USPS, _ = flags.GetString("template-usps")
	tplCfg.GOFO, _ = flags.GetString("template-gofo")
	tplCfg.Uni, _ = flags.GetString("template-uni")
	tplCfg.Mode, _ = flags.GetString("template-mode")
	tplCfg.Threshold, _ = flags.GetFloat64("template-threshold")

	templates := loadTemplates(log, tplCfg)
	if len(templates) == 0 {
		return fmt.Errorf("no usable templates configured")
	}

	inputPath := args[0]
	dpi, _ := flags.GetInt("dpi")

	renderer := render.New(&render.Config{Logger: log})
	matcher := match.New(nil)

	total, err := renderer.PageCount(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	carriers := []string{classify.CarrierUSPS, classify.CarrierGOFO, classify.CarrierUni}
	matchCounts := make(map[string]int)

	for idx := 0; idx < total; idx++ {
		img, err := renderer.RenderPage(inputPath, idx, dpi)
		if err != nil {
			fmt.Printf("page %d: render failed: %v\n", idx+1, err)
			continue
		}

		fmt.Printf("page %d:", idx+1)
		for _, carrier := range carriers {
			tpl := templates[carrier]
			if tpl == nil {
				continue
			}
			score := matcher.BestScore(img, tpl)
			matched := tpl.Matches(score)
			if matched {
				matchCounts[carrier]++
			}
			fmt.Printf("  %s=%.3f(%v)", carrier, score, matched)
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Printf("Pages: %d\n", total)
	for _, carrier := range carriers {
		if templates[carrier] == nil {
			continue
		}
		fmt.Printf("  %s matched: %d\n", carrier, matchCounts[carrier])
	}
	return nil
}
