package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		want     ChangeType
		relevant bool
	}{
		{"static/style.css", ChangeTypeStyle, true},
		{"static/app.js", ChangeTypeScript, true},
		{"static/index.html", ChangeTypePage, true},
		{"static/.app.js.swp", 0, false},
		{"static/app.js~", 0, false},
		{"static/notes.txt", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, relevant := Classify(tt.name)
			assert.Equal(t, tt.relevant, relevant)
			if relevant {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPlanReload(t *testing.T) {
	root := filepath.Join("srv", "static")

	reload := PlanReload(ChangeEvent{
		Type:  ChangeTypeStyle,
		Paths: []string{filepath.Join(root, "css", "style.css")},
	}, root)
	assert.True(t, reload.StylesOnly)
	assert.Equal(t, []string{"css/style.css"}, reload.Paths)

	reload = PlanReload(ChangeEvent{Type: ChangeTypeScript, Paths: []string{filepath.Join(root, "app.js")}}, root)
	assert.False(t, reload.StylesOnly)
}

func TestDebouncerBatchesBursts(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 30*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeStyle, Paths: []string{"a.css"}}
	input <- ChangeEvent{Type: ChangeTypePage, Paths: []string{"index.html"}}
	input <- ChangeEvent{Type: ChangeTypeScript, Paths: []string{"a.css"}}

	select {
	case batch := <-d.Output():
		assert.Equal(t, ChangeTypePage, batch.Type)
		assert.Equal(t, []string{"a.css", "index.html"}, batch.Paths)
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for debounced batch")
	}

	// Nothing else is pending
	select {
	case batch := <-d.Output():
		t.Errorf("Unexpected extra batch %+v", batch)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 200*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the quiet timer from firing; the max wait must still flush
	stop := time.After(150 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case batch := <-d.Output():
			assert.NotEmpty(t, batch.Paths)
			return
		case <-ticker.C:
			input <- ChangeEvent{Type: ChangeTypeScript, Paths: []string{"app.js"}}
		case <-stop:
			t.Fatal("Max wait did not flush the batch")
		}
	}
}

func TestDebouncerFlushesWhenInputCloses(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeStyle, Paths: []string{"a.css"}}
	close(input)

	batch, ok := <-d.Output()
	require.True(t, ok)
	assert.Equal(t, []string{"a.css"}, batch.Paths)

	_, ok = <-d.Output()
	assert.False(t, ok, "Output should close after input closes")
}

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan Reload, 4)
	require.NoError(t, Watch(ctx, dir, 20*time.Millisecond, 500*time.Millisecond, func(r Reload) {
		reloads <- r
	}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{color:red}"), 0o644))

	select {
	case r := <-reloads:
		assert.True(t, r.StylesOnly)
		assert.Equal(t, []string{"style.css"}, r.Paths)
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for reload")
	}
}

func TestNewFileWatcherRejectsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewFileWatcher(path)
	assert.Error(t, err)
}
