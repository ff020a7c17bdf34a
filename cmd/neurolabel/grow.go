package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurolabel/pkg/grow"
)

// newGrowCmd grows circular labels around seed vertices.
func newGrowCmd() *cobra.Command {
	var (
		subject  string
		seedsArg string
		hemisArg string
		extent   float64
		outPfx   string
	)
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Grow labels from seed vertices by geodesic radius",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			seeds, err := parseSeeds(seedsArg)
			if err != nil {
				return err
			}
			hemis, err := parseHemis(hemisArg)
			if err != nil {
				return err
			}
			if extent == 0 {
				extent = cfg.Grow.ExtentMM
			}
			labels, err := grow.Labels(subject, seeds, extent, hemis, grow.Options{
				SubjectsDir: cfg.Paths.SubjectsDir,
				Surf:        cfg.Grow.Surf,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			for i, l := range labels {
				path, err := l.Save(fmt.Sprintf("%s_%d", outPfx, seeds[i]))
				if err != nil {
					return err
				}
				logger.Info("wrote grown label",
					zap.String("path", path),
					zap.Int("seed", seeds[i]),
					zap.Int("vertices", l.Len()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject identifier")
	cmd.Flags().StringVar(&seedsArg, "seeds", "", "comma-separated seed vertex indices")
	cmd.Flags().StringVar(&hemisArg, "hemis", "", "comma-separated hemisphere per seed (lh/rh)")
	cmd.Flags().Float64Var(&extent, "extent", 0, "geodesic radius in mm (default from config)")
	cmd.Flags().StringVar(&outPfx, "out", "label", "output filename prefix")
	return cmd
}

func parseSeeds(arg string) ([]int, error) {
	if arg == "" {
		return nil, fmt.Errorf("--seeds is required")
	}
	parts := strings.Split(arg, ",")
	seeds := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad seed %q: %w", p, err)
		}
		seeds = append(seeds, v)
	}
	return seeds, nil
}

func parseHemis(arg string) ([]int, error) {
	if arg == "" {
		return nil, fmt.Errorf("--hemis is required")
	}
	parts := strings.Split(arg, ",")
	hemis := make([]int, 0, len(parts))
	for _, p := range parts {
		switch strings.TrimSpace(p) {
		case "lh":
			hemis = append(hemis, grow.HemiLeftIndex)
		case "rh":
			hemis = append(hemis, grow.HemiRightIndex)
		default:
			return nil, fmt.Errorf("bad hemisphere %q: want lh or rh", p)
		}
	}
	return hemis, nil
}
