package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triagekit/internal/models"
)

func TestFileDestinationWritesChecklist(t *testing.T) {
	dir := t.TempDir()
	dest := NewFileDestination(Config{Name: "file", Type: "file", Enabled: true, OutputDir: dir})
	fixed := time.UnixMilli(1709284500000)
	dest.now = func() time.Time { return fixed }

	cl := checklist()
	result := dest.Send(context.Background(), cl)
	require.True(t, result.Success, result.Error)

	want := filepath.Join(dir, fmt.Sprintf("checklist-%s-%d.json", cl.AlertID, fixed.UnixMilli()))
	data, err := os.ReadFile(want)
	require.NoError(t, err)

	var round models.Checklist
	require.NoError(t, json.Unmarshal(data, &round))
	assert.Equal(t, cl.AlertID, round.AlertID)
	assert.Equal(t, cl.Steps[0].Instruction, round.Steps[0].Instruction)
}

func TestFileDestinationCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	dest := NewFileDestination(Config{Name: "file", Type: "file", Enabled: true, OutputDir: dir})

	result := dest.Send(context.Background(), checklist())
	require.True(t, result.Success, result.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileDestinationWriteFailure(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	dest := NewFileDestination(Config{Name: "file", Type: "file", Enabled: true, OutputDir: blocker})
	result := dest.Send(context.Background(), checklist())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestFileDestinationDefaultsNameAndFilter(t *testing.T) {
	dest := NewFileDestination(Config{OutputDir: t.TempDir()})
	assert.Equal(t, "file", dest.Name())
	assert.Equal(t, "file", dest.Type())
	assert.True(t, dest.ShouldSend(checklist(), criticalAlert()))
}
