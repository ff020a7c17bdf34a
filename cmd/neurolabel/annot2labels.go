package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurolabel/pkg/parc"
)

// newAnnot2LabelsCmd converts a parcellation annotation into one label file
// per region.
func newAnnot2LabelsCmd() *cobra.Command {
	var (
		subject string
		parcNme string
		annot   string
		hemi    string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "annot2labels",
		Short: "Write one .label file per parcellation region",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			labels, _, err := parc.LabelsFromParc(subject, parc.Options{
				Parc:        parcNme,
				Hemi:        hemi,
				AnnotPath:   annot,
				SubjectsDir: cfg.Paths.SubjectsDir,
			})
			if err != nil {
				return err
			}
			for _, l := range labels {
				// Save appends the hemisphere suffix itself.
				prefix := strings.TrimSuffix(l.Name, fmt.Sprintf("-%s", l.Hemi))
				path, err := l.Save(filepath.Join(outDir, prefix))
				if err != nil {
					return err
				}
				logger.Debug("wrote label", zap.String("path", path), zap.Int("vertices", l.Len()))
			}
			logger.Info("converted annotation to labels",
				zap.String("subject", subject),
				zap.Int("labels", len(labels)),
				zap.String("out", outDir))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject identifier")
	cmd.Flags().StringVar(&parcNme, "parc", "aparc", "parcellation name")
	cmd.Flags().StringVar(&annot, "annot", "", "explicit annotation file (overrides --parc/--hemi)")
	cmd.Flags().StringVar(&hemi, "hemi", "both", "hemisphere filter: lh, rh or both")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}
