package hashutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cachalot-cc/cachalot/internal/buffer"
	"github.com/cachalot-cc/cachalot/internal/digest"
)

const defaultReadCapacity = 4096

// ReadFile reads the file at path into a padded buffer. sizeHint
// pre-allocates capacity; the buffer grows as needed if the hint is wrong.
func ReadFile(path string, sizeHint int) (*buffer.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sizeHint <= 0 {
		sizeHint = defaultReadCapacity
	}
	buf := buffer.New(sizeHint)

	n := 0
	for {
		if n == buf.Cap() {
			// Record the filled size first so the grow preserves it.
			buf.SetSize(n)
			buf.SetCapacity(2 * buf.Cap())
		}
		m, err := f.Read(buf.Data()[n:])
		n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	buf.SetSize(n)
	return buf, nil
}

// HashFile streams the raw content of the file at path into d.
func HashFile(d *digest.Digest, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(d, f); err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return nil
}

// IsPrecompiledHeader reports whether path looks like a precompiled-header
// artifact, either by its own extension or by sitting inside a .gch bundle
// directory.
func IsPrecompiledHeader(path string) bool {
	switch filepath.Ext(path) {
	case ".gch", ".pch", ".pth":
		return true
	}
	return filepath.Ext(filepath.Dir(path)) == ".gch"
}
