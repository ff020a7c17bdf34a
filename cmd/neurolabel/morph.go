package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurolabel/pkg/label"
	"neurolabel/pkg/morph"
)

// newMorphCmd projects a label file onto another subject's surface.
func newMorphCmd() *cobra.Command {
	var (
		labelPath string
		from      string
		to        string
		smooth    int
		outPfx    string
	)
	cmd := &cobra.Command{
		Use:   "morph",
		Short: "Morph a label from one subject onto another",
		RunE: func(cmd *cobra.Command, args []string) error {
			if labelPath == "" || from == "" || to == "" {
				return fmt.Errorf("--label, --from and --to are required")
			}
			l, err := label.Read(labelPath)
			if err != nil {
				return err
			}
			if smooth < 0 {
				smooth = cfg.Morph.SmoothSteps
			}
			err = morph.Apply(l, from, to, smooth, morph.TargetDefault(), morph.Options{
				SubjectsDir: cfg.Paths.SubjectsDir,
				Surf:        cfg.Morph.Surf,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			path, err := l.Save(outPfx)
			if err != nil {
				return err
			}
			logger.Info("wrote morphed label",
				zap.String("path", path),
				zap.String("from", from),
				zap.String("to", to))
			return nil
		},
	}
	cmd.Flags().StringVar(&labelPath, "label", "", "label file to morph")
	cmd.Flags().StringVar(&from, "from", "", "source subject")
	cmd.Flags().StringVar(&to, "to", "", "target subject")
	cmd.Flags().IntVar(&smooth, "smooth", -1, "smoothing steps (default from config)")
	cmd.Flags().StringVar(&outPfx, "out", "morphed", "output filename prefix")
	return cmd
}
