package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

func TestBuildCmd_Use(t *testing.T) {
	assert.Equal(t, "build <folder>", buildCmd.Use)
}

func TestBuildCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"build"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestBuildCmd_HasFlags(t *testing.T) {
	require.NotNil(t, buildCmd.Flags().Lookup("suffix"))
	require.NotNil(t, buildCmd.Flags().Lookup("workers"))
	require.NotNil(t, buildCmd.Flags().Lookup("batch-size"))
}

func TestBuildCmd_PrintsReport(t *testing.T) {
	builder, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"build", "/data/reports"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "/data/reports", builder.lastFolder)
	assert.Contains(t, buf.String(), "Processed: 2")
	assert.Contains(t, buf.String(), "Skipped: 1")
	assert.Contains(t, buf.String(), "Chunks: 40")
}

func TestBuildCmd_PassesOptions(t *testing.T) {
	builder, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"build", "/data/reports",
		"--suffix", ".pdf", "--suffix", ".md",
		"--workers", "4", "--batch-size", "16"})
	defer func() {
		rootCmd.SetArgs(nil)
		buildSuffixes = nil
		buildWorkers = 0
		buildBatchSize = 0
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{".pdf", ".md"}, builder.lastOpts.Suffixes)
	assert.Equal(t, 4, builder.lastOpts.Workers)
	assert.Equal(t, 16, builder.lastOpts.BatchSize)
}

func TestBuildCmd_NoInputFails(t *testing.T) {
	builder, _, cleanup := setupTestServices()
	defer cleanup()
	builder.report = nil
	builder.err = domain.ErrNoInput

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"build", "/empty"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoInput)
}

func TestBuildCmd_AllFailedPrintsFailures(t *testing.T) {
	builder, _, cleanup := setupTestServices()
	defer cleanup()
	builder.report = &domain.BuildReport{
		Failed:   2,
		Failures: []string{"a.pdf: conversion failed", "b.pdf: bad name"},
	}
	builder.err = domain.ErrAllFilesFailed

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"build", "/data/reports"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, buf.String(), "a.pdf: conversion failed")
	assert.Contains(t, buf.String(), "b.pdf: bad name")
}
