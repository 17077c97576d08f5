//go:build !windows

package dev

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/queue"
)

// recordingLoader writes a shell script that appends its arguments to
// a log file.
func recordingLoader(t *testing.T, dir string) (script, logFile string) {
	t.Helper()
	logFile = filepath.Join(dir, "calls.log")
	script = filepath.Join(dir, "record.sh")
	body := "#!/bin/sh\nprintf '%s\\n' \"$*\" >> '" + logFile + "'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))
	return script, logFile
}

func readCalls(t *testing.T, logFile string) []string {
	t.Helper()
	data, err := os.ReadFile(logFile)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func newLoaderRunner(t *testing.T, loaders ...Loader) (*LoaderRunner, string, string) {
	t.Helper()
	root := t.TempDir()
	entry := filepath.Join(root, "src")
	writeFile(t, filepath.Join(entry, "a.js"), "a")
	writeFile(t, filepath.Join(entry, "b.css"), "b")
	writeFile(t, filepath.Join(entry, "sub", "c.js"), "c")

	q := queue.New("loader")
	t.Cleanup(q.Close)
	return &LoaderRunner{Root: root, Entry: entry, Loaders: loaders, Queue: q}, root, entry
}

func TestLoaderRunner_Startup(t *testing.T) {
	script, logFile := recordingLoader(t, t.TempDir())
	r, root, entry := newLoaderRunner(t,
		Loader{Title: "scripts", Ext: ".js", Exec: script},
		Loader{Title: "all", Exec: script, Runner: "/bin/sh"},
	)

	require.NoError(t, r.Startup(context.Background()))

	base := "--dir " + root + " --entry " + entry
	assert.Equal(t, []string{
		base,
		base + " --file " + filepath.Join(entry, "a.js") + " --type first",
		base + " --file " + filepath.Join(entry, "sub", "c.js") + " --type first",
	}, readCalls(t, logFile))
}

func TestLoaderRunner_DispatchUsesVerb(t *testing.T) {
	script, logFile := recordingLoader(t, t.TempDir())
	l := Loader{Title: "scripts", Ext: ".js", Exec: script}
	r, root, entry := newLoaderRunner(t, l)

	file := filepath.Join(entry, "a.js")
	require.NoError(t, r.Dispatch(l, Modified, file))
	require.NoError(t, r.Dispatch(l, Deleted, file))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Queue.Wait(ctx))

	base := "--dir " + root + " --entry " + entry + " --file " + file
	assert.Equal(t, []string{base + " --type update", base + " --type delete"}, readCalls(t, logFile))
}

func TestLoaderRunner_Failure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "broken.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'cannot parse' >&2\nexit 3\n"), 0755))

	l := Loader{Title: "broken", Exec: script}
	r, _, entry := newLoaderRunner(t, l)

	err := r.Startup(context.Background())
	require.Error(t, err)
	var le *errors.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "E305", le.Code)
	assert.Contains(t, err.Error(), "cannot parse")

	res := r.Task(l, "create", filepath.Join(entry, "a.js")).Run(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "broken failed", res.Messages[0])
}

func TestLoaderRunner_NoLoaders(t *testing.T) {
	r, _, _ := newLoaderRunner(t)
	assert.NoError(t, r.Startup(context.Background()))
}

func TestDispatcher_LoaderCategory(t *testing.T) {
	script, logFile := recordingLoader(t, t.TempDir())
	f := newDispatchFixture(t, okCompiler)
	l := Loader{Title: "images", Ext: ".png", Exec: script}
	f.d.Classifier.Loaders = []Loader{l}
	f.d.Loaders.Loaders = []Loader{l}
	f.d.Loaders.Queue = queue.New("loader")
	t.Cleanup(f.d.Loaders.Queue.Close)

	img := filepath.Join(f.cfg.EntryPath(), "img", "logo.png")
	assert.Equal(t, CategoryLoader, f.d.Dispatch(ChangeEvent{Kind: Created, Path: img}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.d.Loaders.Queue.Wait(ctx))

	calls := readCalls(t, logFile)
	require.Len(t, calls, 1)
	assert.True(t, strings.HasSuffix(calls[0], "--file "+img+" --type create"))
}
