package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaiazov/PrintService/cmd/pdf-printer/ui"
	"github.com/gaiazov/PrintService/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	loadedCfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pdf-printer",
	Short: "Print PDF documents on a thermal receipt printer",
	Long: `pdf-printer downloads a PDF, crops every page to its content, rasterizes it
at the printer's resolution and prints each page as its own job with a paper
size matching the page.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		loadedCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
