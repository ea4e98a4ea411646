package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/pkg/types"
)

func TestDecide_NoPriorRecord(t *testing.T) {
	cur := types.FileMeta{FileSize: 10, LastModified: time.Now(), ContentHash: "abc"}
	assert.Equal(t, DecisionAdded, Decide(nil, cur))
}

func TestDecide_Unchanged(t *testing.T) {
	now := time.Now()
	prior := &types.FileMeta{FileSize: 10, LastModified: now, ContentHash: "abc"}

	// Equal modtime counts as covered (tolerates coarse timestamps)
	cur := types.FileMeta{FileSize: 10, LastModified: now, ContentHash: "abc"}
	assert.Equal(t, DecisionUnchanged, Decide(prior, cur))

	// Prior newer than current is also covered
	cur.LastModified = now.Add(-time.Minute)
	assert.Equal(t, DecisionUnchanged, Decide(prior, cur))
}

func TestDecide_Updated(t *testing.T) {
	now := time.Now()
	prior := &types.FileMeta{FileSize: 10, LastModified: now, ContentHash: "abc"}

	tests := []struct {
		name string
		cur  types.FileMeta
	}{
		{"hash changed", types.FileMeta{FileSize: 10, LastModified: now, ContentHash: "def"}},
		{"size changed", types.FileMeta{FileSize: 11, LastModified: now, ContentHash: "abc"}},
		{"newer modtime", types.FileMeta{FileSize: 10, LastModified: now.Add(time.Second), ContentHash: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, DecisionUpdated, Decide(prior, tt.cur))
		})
	}
}

func TestReadFile_Fingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0644))

	content, meta, err := ReadFile(path, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", content)
	assert.Equal(t, int64(6), meta.FileSize)
	// sha256("hello\n")
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", meta.ContentHash)
	assert.False(t, meta.LastModified.IsZero())
}

func TestReadFile_SizeGuard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))

	_, _, err := ReadFile(path, 50)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestReadFile_Missing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "absent"), 1<<20)
	assert.Error(t, err)
}
