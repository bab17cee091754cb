package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the waypoint CLI into a temp dir.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "waypoint"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "waypoint")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find go.mod")
		}
		dir = parent
	}
}

type cli struct {
	t   *testing.T
	bin string
	dir string
	env []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	return &cli{
		t:   t,
		bin: buildBinary(t),
		dir: t.TempDir(),
		env: append(os.Environ(),
			"HOME="+t.TempDir(),
			"WAYPOINT_MAP_API_KEY=test-key",
			"WAYPOINT_MAP_RESTRICT_TO=com.example.waypoint",
			"WAYPOINT_LOG_LEVEL=error",
		),
	}
}

// run executes the CLI and returns the parsed JSON envelope.
func (c *cli) run(args ...string) map[string]any {
	c.t.Helper()
	cmd := exec.Command(c.bin, args...)
	cmd.Dir = c.dir
	cmd.Env = c.env
	stdout, err := cmd.Output()
	if err != nil && len(stdout) == 0 {
		c.t.Fatalf("%v failed with no output: %v", args, err)
	}
	var result map[string]any
	require.NoError(c.t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

func (c *cli) seed() {
	c.t.Helper()
	fixture := filepath.Join(projectRoot(c.t), "testdata", "places.yaml")
	res := c.run("seed", fixture)
	require.Empty(c.t, res["error"])
}

func TestCLI_SeedAndGet(t *testing.T) {
	c := newCLI(t)
	c.seed()
	require.FileExists(t, filepath.Join(c.dir, ".waypoint", "waypoint.db"))

	res := c.run("get", "locations", "0")
	assert.Equal(t, "get", res["command"])
	rec, ok := res["results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Cafe", rec["name"])
	assert.Equal(t, "555-0100", rec["tel"])
	assert.Equal(t, false, rec["favorite"])

	res = c.run("get", "locations", "99")
	assert.Equal(t, "NOT_FOUND", res["code"])

	res = c.run("get", "drop table locations", "0")
	assert.Equal(t, "INVALID_TABLE", res["code"])
}

func TestCLI_FavToggleAndList(t *testing.T) {
	c := newCLI(t)
	c.seed()

	res := c.run("fav", "toggle", "locations", "1")
	assert.Equal(t, "added", res["results"].(map[string]any)["result"])

	res = c.run("fav", "list", "locations")
	assert.EqualValues(t, 1, res["total_count"])

	res = c.run("fav", "toggle", "locations", "1")
	assert.Equal(t, "removed", res["results"].(map[string]any)["result"])
}

func TestCLI_NavAndSession(t *testing.T) {
	c := newCLI(t)
	c.seed()

	res := c.run("nav", "second:0", "third:99", "back")
	require.Empty(t, res["error"])
	tr := res["results"].(map[string]any)
	steps := tr["steps"].([]any)
	require.Len(t, steps, 4)
	third := steps[2].(map[string]any)["view"].(map[string]any)
	assert.Equal(t, "not_found", third["status"])

	scenario := filepath.Join(projectRoot(t), "testdata", "session.yaml")
	res = c.run("session", scenario)
	require.Empty(t, res["error"])
	assert.Equal(t, "session", res["results"].(map[string]any)["scenario"])
}

func TestCLI_MissingMapKey(t *testing.T) {
	c := newCLI(t)
	env := c.env[:0:0]
	for _, kv := range c.env {
		if len(kv) < len("WAYPOINT_MAP_API_KEY=") || kv[:len("WAYPOINT_MAP_API_KEY=")] != "WAYPOINT_MAP_API_KEY=" {
			env = append(env, kv)
		}
	}
	c.env = env

	res := c.run("tables")
	assert.Equal(t, "CONFIG_MISSING", res["code"])

	c.env = append(c.env, "WAYPOINT_MAP_DISABLED=true")
	res = c.run("tables")
	assert.Empty(t, res["error"])
	assert.EqualValues(t, 4, res["total_count"])
}

func TestCLI_MapLink(t *testing.T) {
	c := newCLI(t)
	c.seed()

	res := c.run("map", "landmarks", "0")
	require.Empty(t, res["error"])
	link := res["results"].(map[string]any)["link"].(string)
	assert.Contains(t, link, "key=test-key")
	assert.Contains(t, link, "center=Town+Square")
}

func TestCLI_Delete(t *testing.T) {
	c := newCLI(t)
	c.seed()

	res := c.run("delete", "locations", "1")
	require.Empty(t, res["error"])
	assert.EqualValues(t, 1, res["results"].(map[string]any)["count"])

	res = c.run("delete", "locations", "1")
	assert.Equal(t, "NOT_FOUND", res["code"])

	res = c.run("delete", "locations", "0", "1", "2")
	require.Empty(t, res["error"])
	assert.EqualValues(t, 2, res["results"].(map[string]any)["count"])

	res = c.run("list", "locations")
	assert.EqualValues(t, 0, res["total_count"])
}
