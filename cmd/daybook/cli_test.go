package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary builds the daybook binary into dir and returns its path.
func buildBinary(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "daybook.exe")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build daybook: %v\n%s", err, string(out))
	}
	return bin
}

type cli struct {
	t   *testing.T
	bin string
	dir string
	env []string
}

func newCLI(t *testing.T) *cli {
	if testing.Short() {
		t.Skip("skipping CLI test in short mode")
	}
	tmp := t.TempDir()
	return &cli{
		t:   t,
		bin: buildBinary(t, tmp),
		dir: filepath.Join(tmp, "journal"),
		env: append(os.Environ(),
			"XDG_CONFIG_HOME="+filepath.Join(tmp, "config"),
			"XDG_DATA_HOME="+filepath.Join(tmp, "data"),
		),
	}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := exec.Command(c.bin, append(args, "--dir", c.dir)...)
	cmd.Env = c.env
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.Output()
	return string(out), err
}

// runFrom runs without --dir from wd, so the journal is found by walking up.
func (c *cli) runFrom(wd string, args ...string) (string, error) {
	c.t.Helper()
	cmd := exec.Command(c.bin, args...)
	cmd.Dir = wd
	cmd.Env = c.env
	out, err := cmd.Output()
	return string(out), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			c.t.Fatalf("daybook %v failed: %v\n%s", args, err, exitErr.Stderr)
		}
		c.t.Fatalf("daybook %v failed: %v", args, err)
	}
	return out
}

func TestCLI_WriteListRead(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("", "write", "2025-11-01", "--content", "hello\nsecond line")
	assert.Contains(t, out, "Entry 2025-11-01 saved.")
	c.mustRun("world from stdin", "write", "2025-10-20")

	out = c.mustRun("", "list")
	assert.Equal(t, "2025-11-01\n2025-10-20\n", out)

	out = c.mustRun("", "list", "--json", "--previews")
	var items []struct {
		Date    string `json:"date"`
		Preview string `json:"preview"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "2025-11-01", items[0].Date)
	assert.Equal(t, "hello\nsecond line", items[0].Preview)

	out = c.mustRun("", "read", "2025-10-20")
	assert.Equal(t, "world from stdin", out)

	_, err := c.run("", "read", "2025-01-01")
	assert.Error(t, err, "reading a missing entry exits non-zero")

	out = c.mustRun("", "write", "2025-11-01", "--content", "   ")
	assert.Contains(t, out, "removed")
	assert.Equal(t, "2025-10-20\n", c.mustRun("", "list"))
}

func TestCLI_DeleteProtectsPast(t *testing.T) {
	c := newCLI(t)

	c.mustRun("", "write", "2020-01-01", "--content", "old")

	_, err := c.run("", "delete", "2020-01-01")
	assert.Error(t, err)
	assert.Equal(t, "2020-01-01\n", c.mustRun("", "list"))

	c.mustRun("", "delete", "2020-01-01", "--force")
	assert.Empty(t, c.mustRun("", "list"))
}

func TestCLI_EditAppendsAndSaves(t *testing.T) {
	c := newCLI(t)

	c.mustRun("first\n", "edit", "2025-11-09", "--policy", "debounced", "--debounce", "1h")
	c.mustRun("second\n", "edit", "2025-11-09", "--policy", "immediate")

	out := c.mustRun("", "read", "2025-11-09")
	assert.Equal(t, "first\nsecond\n", out)

	c.mustRun("replaced\n", "edit", "2025-11-09", "--replace", "--policy", "explicit")
	assert.Equal(t, "replaced\n", c.mustRun("", "read", "2025-11-09"))
}

func TestCLI_TodayAndVersion(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("", "today")
	assert.Contains(t, out, time.Now().Format("2006-01-02"))
	assert.Contains(t, out, "no entry yet")

	c.mustRun("", "write", "today", "--content", "written today")
	out = c.mustRun("", "today")
	assert.Contains(t, out, "written today")

	assert.Contains(t, c.mustRun("", "version"), "daybook version")
}

func TestCLI_SQLiteAdapter(t *testing.T) {
	c := newCLI(t)

	c.mustRun("", "write", "2025-11-01", "--content", "in a table", "--adapter", "sqlite")
	assert.Equal(t, "2025-11-01\n", c.mustRun("", "list", "--adapter", "sqlite"))

	_, err := os.Stat(filepath.Join(c.dir, "daybook.db"))
	assert.NoError(t, err)
	assert.Empty(t, c.mustRun("", "list"), "the fs adapter does not see sqlite rows")
}

func TestCLI_FindsEnclosingSQLiteJournal(t *testing.T) {
	c := newCLI(t)

	c.mustRun("", "write", "2025-11-01", "--content", "in a table", "--adapter", "sqlite")
	sub := filepath.Join(c.dir, "attachments", "2025")
	require.NoError(t, os.MkdirAll(sub, 0755))

	out, err := c.runFrom(sub, "list")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01\n", out, "daybook.db selects the sqlite adapter")

	out, err = c.runFrom(sub, "read", "2025-11-01")
	require.NoError(t, err)
	assert.Equal(t, "in a table", out)
}
