package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook/pkg/adapters/sqlite"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   notes/ (.daybook)
	//     2025/
	//       november/
	//   db/ (daybook.db)
	//     backups/
	//   both/ (.daybook, daybook.db)
	//   fake/ (daybook.db is a directory)
	//   stray/ (.daybook is a file)
	base := t.TempDir()
	notes := filepath.Join(base, "notes")
	november := filepath.Join(notes, "2025", "november")
	db := filepath.Join(base, "db")
	backups := filepath.Join(db, "backups")
	both := filepath.Join(base, "both")
	fake := filepath.Join(base, "fake")
	stray := filepath.Join(base, "stray")

	for _, dir := range []string{
		november, backups,
		filepath.Join(notes, MarkerDir),
		filepath.Join(both, MarkerDir),
		filepath.Join(fake, sqlite.DefaultFile),
	} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	for _, file := range []string{
		filepath.Join(db, sqlite.DefaultFile),
		filepath.Join(both, sqlite.DefaultFile),
		filepath.Join(stray, MarkerDir),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
		require.NoError(t, os.WriteFile(file, nil, 0644))
	}

	tests := []struct {
		name  string
		start string
		want  Root
	}{
		{"file journal at its root", notes, Root{Dir: notes, Adapter: "fs"}},
		{"file journal from a nested dir", november, Root{Dir: notes, Adapter: "fs"}},
		{"sqlite journal", db, Root{Dir: db, Adapter: "sqlite"}},
		{"sqlite journal from a subdir", backups, Root{Dir: db, Adapter: "sqlite"}},
		{"database wins over marker", both, Root{Dir: both, Adapter: "sqlite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.start)
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want.Dir), filepath.Clean(got.Dir))
			assert.Equal(t, tt.want.Adapter, got.Adapter)
		})
	}

	// Markers of the wrong kind are ignored; the walk continues upwards and
	// leaves the temp tree without finding a journal.
	for _, start := range []string{fake, stray} {
		t.Run("ignores "+filepath.Base(start), func(t *testing.T) {
			got, err := FindRoot(start)
			if err == nil {
				assert.NotEqual(t, start, got.Dir)
				return
			}
			assert.ErrorIs(t, err, ErrNoRoot)
		})
	}
}
