package parc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/label"
)

// annot2LabelsTool is the external converter used for cross-validation.
// The test is skipped when it is not installed.
const annot2LabelsTool = "mne_annot2labels"

// runAnnot2Labels shells out to the external converter and reads back the
// label files it wrote. A non-zero exit status is surfaced as an error
// carrying the status; callers abort rather than retry.
func runAnnot2Labels(subject, parcName, subjectsDir, outDir string) ([]*label.Label, error) {
	cmd := exec.Command(annot2LabelsTool, "--subject", subject, "--parc", parcName)
	cmd.Dir = outDir
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", subjects.EnvVar, subjectsDir))
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exit status %d: %s", annot2LabelsTool, exitErr.ExitCode(), out)
		}
		return nil, fmt.Errorf("running %s: %w", annot2LabelsTool, err)
	}

	paths, err := filepath.Glob(filepath.Join(outDir, "*.label"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	labels := make([]*label.Label, 0, len(paths))
	for _, p := range paths {
		l, err := label.Read(p)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// TestCrossValidateAgainstExternalTool compares LabelsFromParc with the
// output of the external converter on the same synthetic subject. The
// external tool does not fill positions, so only names, hemispheres and
// vertex sets are compared.
func TestCrossValidateAgainstExternalTool(t *testing.T) {
	if _, err := exec.LookPath(annot2LabelsTool); err != nil {
		t.Skipf("%s not found in PATH", annot2LabelsTool)
	}

	dir := writeTestParcellation(t, "sample")
	labels, _, err := LabelsFromParc("sample", Options{SubjectsDir: dir})
	require.NoError(t, err)

	external, err := runAnnot2Labels("sample", "aparc", dir, t.TempDir())
	require.NoError(t, err)

	require.Equal(t, len(labels), len(external))
	for i := range labels {
		assert.Equal(t, labels[i].Name, external[i].Name)
		assert.Equal(t, labels[i].Hemi, external[i].Hemi)
		assert.Equal(t, labels[i].Vertices, external[i].Vertices)
	}
}
