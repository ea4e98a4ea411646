package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/reposcope/reposcope/pkg/types"
)

// ErrFileTooLarge is returned by ReadFile for files exceeding the size guard.
// The orchestrator skips such files with a warning; they do not count as
// processed and do not affect delta accounting.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ReadFile reads a file's full text content and computes its fingerprint:
// sha256 content hash, size, and modification time. Files larger than maxSize
// are rejected before the content is read.
func ReadFile(absPath string, maxSize int64) (string, types.FileMeta, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return "", types.FileMeta{}, fmt.Errorf("stat %s: %w", absPath, err)
	}
	if info.Size() > maxSize {
		return "", types.FileMeta{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, absPath, info.Size())
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", types.FileMeta{}, fmt.Errorf("read %s: %w", absPath, err)
	}

	sum := sha256.Sum256(content)
	meta := types.FileMeta{
		FileSize:     info.Size(),
		LastModified: info.ModTime(),
		ContentHash:  hex.EncodeToString(sum[:]),
	}
	return string(content), meta, nil
}
