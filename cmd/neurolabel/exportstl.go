package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/label"
	"neurolabel/pkg/stl"
	"neurolabel/pkg/surface"
)

// newExportSTLCmd exports a label's surface patch as a binary STL mesh.
func newExportSTLCmd() *cobra.Command {
	var (
		labelPath string
		subject   string
		surf      string
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "export-stl",
		Short: "Export a label's surface patch as a binary STL mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if labelPath == "" || subject == "" {
				return fmt.Errorf("--label and --subject are required")
			}
			l, err := label.Read(labelPath)
			if err != nil {
				return err
			}
			dir, err := subjects.Dir(cfg.Paths.SubjectsDir)
			if err != nil {
				return err
			}
			mesh, err := surface.Read(subjects.SurfPath(dir, subject, string(l.Hemi), surf))
			if err != nil {
				return err
			}
			triangles, err := stl.TrianglesFromLabel(mesh, l)
			if err != nil {
				return err
			}
			if len(triangles) == 0 {
				return fmt.Errorf("label %s covers no complete surface face", l.Name)
			}
			if err := stl.Write(outPath, triangles, l.Name); err != nil {
				return err
			}
			logger.Info("exported label mesh",
				zap.String("path", outPath),
				zap.Int("triangles", len(triangles)))
			return nil
		},
	}
	cmd.Flags().StringVar(&labelPath, "label", "", "label file to export")
	cmd.Flags().StringVar(&subject, "subject", "", "subject identifier")
	cmd.Flags().StringVar(&surf, "surf", "white", "surface providing the geometry")
	cmd.Flags().StringVar(&outPath, "out", "label.stl", "output STL file")
	return cmd
}
