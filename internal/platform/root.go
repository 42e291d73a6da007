package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/daybook/pkg/adapters/sqlite"
)

// MarkerDir marks a directory as a file journal root.
const MarkerDir = ".daybook"

// ErrNoRoot is returned by FindRoot when no enclosing journal exists.
var ErrNoRoot = errors.New("no journal root found")

// Root is an enclosing journal and the adapter its marker implies.
type Root struct {
	Dir     string
	Adapter string
}

// FindRoot walks up from startDir to the nearest journal. A daybook.db file
// marks a sqlite journal; a .daybook directory marks a file journal. When a
// directory carries both, the database wins since it holds the entries.
func FindRoot(startDir string) (Root, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Root{}, err
	}

	for {
		switch {
		case isRegular(filepath.Join(dir, sqlite.DefaultFile)):
			return Root{Dir: dir, Adapter: "sqlite"}, nil
		case isDir(filepath.Join(dir, MarkerDir)):
			return Root{Dir: dir, Adapter: "fs"}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Root{}, ErrNoRoot
		}
		dir = parent
	}
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
