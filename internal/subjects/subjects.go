// Package subjects encodes the on-disk layout convention of a subjects
// directory: one subdirectory per subject, each holding surf/, label/ and
// other FreeSurfer-style data.
package subjects

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvVar is the environment variable consulted when no explicit subjects
// directory is provided.
const EnvVar = "SUBJECTS_DIR"

// Dir resolves the subjects directory. An explicit non-empty path wins,
// then the SUBJECTS_DIR environment variable. The resolved directory must
// exist.
func Dir(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		dir = os.Getenv(EnvVar)
	}
	if dir == "" {
		return "", fmt.Errorf("subjects: no subjects directory given and %s is not set", EnvVar)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("subjects: directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("subjects: %s is not a directory", dir)
	}
	return dir, nil
}

// SurfPath returns the path of a surface file, e.g. lh.white or
// rh.sphere.reg, for the given subject.
func SurfPath(dir, subject, hemi, surf string) string {
	return filepath.Join(dir, subject, "surf", fmt.Sprintf("%s.%s", hemi, surf))
}

// AnnotPath returns the path of a parcellation annotation file, e.g.
// lh.aparc.annot, for the given subject.
func AnnotPath(dir, subject, hemi, parc string) string {
	return filepath.Join(dir, subject, "label", fmt.Sprintf("%s.%s.annot", hemi, parc))
}

// LabelDir returns the subject's label directory.
func LabelDir(dir, subject string) string {
	return filepath.Join(dir, subject, "label")
}
