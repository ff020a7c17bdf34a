// Command neurolabel works with cortical surface labels: deriving them
// from parcellation annotations, growing them from seed vertices, morphing
// them between subjects, and exporting them as 3D meshes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurolabel/pkg/config"
)

var (
	flagConfig      string
	flagSubjectsDir string
	flagVerbose     bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "neurolabel",
		Short: "Cortical surface label toolkit",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(flagConfig)
			if err != nil {
				return err
			}
			if flagSubjectsDir != "" {
				cfg.Paths.SubjectsDir = flagSubjectsDir
			}
			if flagVerbose {
				cfg.Output.Verbose = true
			}
			if cfg.Output.Verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "neurolabel.yaml", "configuration file")
	root.PersistentFlags().StringVar(&flagSubjectsDir, "subjects-dir", "", "subjects directory (overrides config and SUBJECTS_DIR)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newAnnot2LabelsCmd())
	root.AddCommand(newGrowCmd())
	root.AddCommand(newMorphCmd())
	root.AddCommand(newExportSTLCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
