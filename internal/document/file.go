package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// maxCollisions bounds the _N suffix search.
const maxCollisions = 10000

// CreateUnique creates dir/base+ext exclusively, or dir/base_N+ext for the
// smallest N >= 1 that is free. The caller owns the returned file.
func CreateUnique(dir, base, ext string) (*os.File, error) {
	for i := 0; i < maxCollisions; i++ {
		name := base + ext
		if i > 0 {
			name = base + "_" + strconv.Itoa(i) + ext
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s%s in %s", ErrNoFreeName, base, ext, dir)
}

// WriteUnique reserves a unique name with CreateUnique and fills it with data
// through a temporary file in the same directory, so the final name never
// holds a partial write. It returns the final path.
func WriteUnique(dir, base, ext string, data []byte) (string, error) {
	reserved, err := CreateUnique(dir, base, ext)
	if err != nil {
		return "", err
	}
	target := reserved.Name()
	if err := reserved.Close(); err != nil {
		_ = os.Remove(target)
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".kwarchive-*.tmp")
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
		_ = os.Remove(target)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		cleanup()
		return "", err
	}
	return target, nil
}
