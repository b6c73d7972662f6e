package estimator_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/machbase/neo-estimator/mods/estimator"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cycles.csv")
	output := filepath.Join(dir, "diag.csv")

	cycles := strings.Join([]string{
		"dt,s0,s1",
		"1.0,1.0,",
		"1.0,,2.0",
		"1.0,,",
		"1.0,1.5,2.5",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(input, []byte(cycles), 0o644))

	cmd := &estimator.RunCmd{
		Input:       input,
		Output:      output,
		Precision:   4,
		Summary:     false,
		LogFilename: ".",
		LogLevel:    "ERROR",
	}
	require.NoError(t, estimator.Run(cmd))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, "xp_0,xp_1,zp_0,zp_1,za_0,za_1,xe_0,xe_1", lines[0])

	// first cycle: channel 1 did not report, its za field is blank
	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 8)
	require.Equal(t, "1.0000", fields[4]) // za_0
	require.Equal(t, "", fields[5])       // za_1

	// third cycle had no readings: observation fields blank, count preserved
	fields = strings.Split(lines[3], ",")
	require.Len(t, fields, 8)
	for _, i := range []int{2, 3, 4, 5} {
		require.Equal(t, "", fields[i])
	}
	// without readings the estimate equals the prediction
	require.Equal(t, fields[0], fields[6])
	require.Equal(t, fields[1], fields[7])
}

func TestRunConstantVelocityConfig(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cycles.csv")
	output := filepath.Join(dir, "diag.csv")
	config := filepath.Join(dir, "model.yaml")

	cycles := strings.Join([]string{
		"dt,pos",
		"1.0,1.0",
		"1.0,2.0",
		"1.0,3.0",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(input, []byte(cycles), 0o644))
	require.NoError(t, os.WriteFile(config, []byte(strings.Join([]string{
		"model: constant-velocity",
		"initialVariance: 1.0",
		"processVariance: 0.1",
		"observationVariance: 0.01",
	}, "\n")), 0o644))

	cmd := &estimator.RunCmd{
		Input:       input,
		Output:      output,
		Config:      config,
		Precision:   3,
		Summary:     false,
		LogFilename: ".",
		LogLevel:    "ERROR",
	}
	require.NoError(t, estimator.Run(cmd))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 4)
	// constant-velocity doubles the state dims: xp_0, xp_1, zp_0, za_0, xe_0, xe_1
	require.Equal(t, "xp_0,xp_1,zp_0,za_0,xe_0,xe_1", lines[0])
}

func TestLoadModelConfig(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(config, []byte(strings.Join([]string{
		"model: brownian",
		"initial: [1.5, 2.5]",
		"observationVariance: 0.5",
		"snapEpsilon: 0.01",
	}, "\n")), 0o644))

	cfg, err := estimator.LoadModelConfig(config)
	require.NoError(t, err)
	require.Equal(t, "brownian", cfg.Model)
	require.Equal(t, []float64{1.5, 2.5}, cfg.Initial)
	require.Equal(t, 0.5, cfg.ObservationVariance)
	require.Equal(t, 0.01, cfg.SnapEpsilon)
	// unset fields keep their defaults
	require.Equal(t, 1.0, cfg.ProcessVariance)

	_, err = estimator.LoadModelConfig(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}

func TestRunUnknownModel(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cycles.csv")
	config := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(input, []byte("dt,s0\n1.0,1.0\n"), 0o644))
	require.NoError(t, os.WriteFile(config, []byte("model: warp\n"), 0o644))

	cmd := &estimator.RunCmd{
		Input:       input,
		Output:      "-",
		Config:      config,
		Summary:     false,
		LogFilename: ".",
		LogLevel:    "ERROR",
	}
	require.Error(t, estimator.Run(cmd))
}
