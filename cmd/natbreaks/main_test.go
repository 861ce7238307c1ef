package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/natbreaks/internal/fsutil"
	"github.com/banshee-data/natbreaks/internal/geotiff"
	"github.com/banshee-data/natbreaks/internal/pipeline"
	"github.com/banshee-data/natbreaks/internal/testutil"
	"github.com/banshee-data/natbreaks/internal/version"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T) (dir, input string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "elevation.tif")
	b := testutil.ClusterBand()
	b.Geo = testutil.UTMGeoRef()
	require.NoError(t, os.WriteFile(input, testutil.FloatGeoTIFF(b), 0644))
	return dir, input
}

func TestClassify(t *testing.T) {
	dir, input := writeInput(t)
	output := filepath.Join(dir, "classes.tif")

	stdout, stderr, err := execute(t, "classify", input, output)
	require.NoError(t, err)

	assert.Contains(t, stdout, "CLASS")
	assert.Contains(t, stdout, "12.000000")
	assert.Contains(t, stdout, "Goodness of variance fit")
	// Progress goes to the structured log.
	assert.Contains(t, stderr, "Number of valid values: 9")
	assert.Contains(t, stderr, "Class 3: <= 22.000000")

	band, err := geotiff.ReadFile(fsutil.OSFileSystem{}, output)
	require.NoError(t, err)
	assert.Equal(t, 4, band.Width)
	assert.Equal(t, 3, band.Height)
	assert.Equal(t, "uint8", band.SampleType)
}

func TestClassify_JSONAndFlags(t *testing.T) {
	dir, input := writeInput(t)
	output := filepath.Join(dir, "classes.tif")
	plots := filepath.Join(dir, "plots")

	stdout, _, err := execute(t, "classify", input, output,
		"--json", "--classes", "2", "--compression", "none", "--plot-dir", plots)
	require.NoError(t, err)

	var got runSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, 2, got.NumClasses)
	assert.Len(t, got.Breaks, 2)
	assert.Len(t, got.ClassCounts, 3)
	assert.Equal(t, 9, got.ValidCount)
	assert.FileExists(t, got.Histogram)
	assert.FileExists(t, got.Chart)
}

func TestClassify_ConfigFileAndOverride(t *testing.T) {
	dir, input := writeInput(t)
	cfgPath := filepath.Join(dir, "classify.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("num_classes: 2\nupper_inclusive: true\n"), 0644))

	stdout, _, err := execute(t, "--config", cfgPath, "breaks", input, "--json")
	require.NoError(t, err)
	var got runSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, 2, got.NumClasses)
	assert.Len(t, got.Breaks, 2)

	stdout, _, err = execute(t, "--config", cfgPath, "breaks", input, "--json", "-k", "3")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, []float64{3, 12, 22}, got.Breaks)
}

func TestClassify_Errors(t *testing.T) {
	dir, input := writeInput(t)
	output := filepath.Join(dir, "classes.tif")

	_, _, err := execute(t, "classify", filepath.Join(dir, "missing.tif"), output)
	assert.ErrorIs(t, err, pipeline.ErrInputNotFound)

	_, _, err = execute(t, "classify", input, output, "--classes", "0")
	assert.Error(t, err)

	_, _, err = execute(t, "classify", input, output, "--compression", "jpeg")
	assert.Error(t, err)

	_, _, err = execute(t, "classify", input)
	assert.Error(t, err)

	_, _, err = execute(t, "classify", input, filepath.Join(dir, "no", "such", "dir.tif"))
	assert.ErrorIs(t, err, pipeline.ErrCreateOutput)
}

func TestBreaks(t *testing.T) {
	_, input := writeInput(t)

	stdout, _, err := execute(t, "breaks", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Class 1: <= 3.000000")
	assert.Contains(t, stdout, "Class 2: <= 12.000000")
	assert.Contains(t, stdout, "Class 3: <= 22.000000")
}

func TestBreaks_JSON(t *testing.T) {
	_, input := writeInput(t)

	stdout, _, err := execute(t, "breaks", input, "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.NotContains(t, got, "run_id")
	assert.NotContains(t, got, "output")
	assert.Equal(t, []any{3.0, 12.0, 22.0}, got["breaks"])
}

func TestInfo(t *testing.T) {
	_, input := writeInput(t)

	stdout, _, err := execute(t, "info", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "4 x 3")
	assert.Contains(t, stdout, "float32")
	assert.Contains(t, stdout, "No-data:     -9999")
	assert.Contains(t, stdout, "EPSG:        32633")
	assert.Contains(t, stdout, "Valid px:    10 (9 positive)")
	assert.NotContains(t, stdout, "Georef:      none")
}

func TestInfo_NoGeoref(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "plain.tif")
	testutil.WriteFloatGeoTIFF(t, fsutil.OSFileSystem{}, input, testutil.ClusterBand())

	stdout, _, err := execute(t, "info", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Georef:      none")
	assert.NotContains(t, stdout, "EPSG:")
}

func TestHistory(t *testing.T) {
	dir, input := writeInput(t)
	dbPath := filepath.Join(dir, "history.db")

	_, _, err := execute(t, "classify", input, filepath.Join(dir, "a.tif"), "--history-db", dbPath)
	require.NoError(t, err)
	stdout, _, err := execute(t, "classify", input, filepath.Join(dir, "b.tif"), "--history-db", dbPath, "--json")
	require.NoError(t, err)
	var second runSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &second))

	stdout, _, err = execute(t, "history", "--db", dbPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], second.RunID), "most recent run first:\n%s", stdout)

	stdout, _, err = execute(t, "history", "--db", dbPath, second.RunID)
	require.NoError(t, err)
	assert.Contains(t, stdout, second.RunID)
	assert.Contains(t, stdout, "b.tif")
	assert.Contains(t, stdout, "Class 3: <= 22.000000")

	_, _, err = execute(t, "history", "--db", dbPath, "no-such-run")
	assert.Error(t, err)

	_, _, err = execute(t, "history")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := execute(t, "migrate", "status", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Schema version: 0 (latest 2)")

	stdout, _, err = execute(t, "migrate", "up", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Schema version: 2 (latest 2)")

	stdout, _, err = execute(t, "migrate", "down", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Schema version: 1 (latest 2)")

	_, _, err = execute(t, "migrate", "sideways", "--db", dbPath)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, version.Version)
}

func TestVerboseLogging(t *testing.T) {
	_, input := writeInput(t)

	_, stderr, err := execute(t, "-v", "breaks", input)
	require.NoError(t, err)
	assert.Contains(t, stderr, "INFO")
	assert.Contains(t, stderr, "Bins for digitize")
}
