package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mpa-survey",
	Short: "Compare microplastic concentrations inside and outside marine protected areas",
	Long:  "Loads a microplastic survey and marine protected area boundaries, projects both to one CRS, classifies every survey point as inside or outside the protected areas and compares the two groups with descriptive statistics and a Mann-Whitney U test.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
