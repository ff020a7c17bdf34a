// Package subjtest builds small synthetic subjects on disk for tests. A
// synthetic subject uses an icosphere for both hemispheres, standing in for
// the white surface and the registered sphere alike.
package subjtest

import (
	"fmt"
	"os"
	"path/filepath"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/surface"
)

// Hemis lists both hemisphere tags in lh-then-rh order.
var Hemis = []string{"lh", "rh"}

// WriteSubject creates dir/subject with white and sphere.reg surfaces for
// both hemispheres, all using the given mesh, and an empty label directory.
func WriteSubject(dir, subject string, mesh *surface.Surface) error {
	for _, sub := range []string{"surf", "label"} {
		if err := os.MkdirAll(filepath.Join(dir, subject, sub), 0o755); err != nil {
			return fmt.Errorf("subjtest: creating %s/%s: %w", subject, sub, err)
		}
	}
	for _, hemi := range Hemis {
		for _, surf := range []string{"white", "sphere.reg"} {
			path := subjects.SurfPath(dir, subject, hemi, surf)
			if err := surface.Write(path, mesh, "synthetic test subject"); err != nil {
				return err
			}
		}
	}
	return nil
}
