package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForCollect(t *testing.T, w *WorkspaceWatcher, path string) map[string]string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		files := w.Collect()
		if _, ok := files[path]; ok {
			return files
		}
		time.Sleep(20 * time.Millisecond)
	}
	return w.Collect()
}

func TestWorkspaceWatcherRecordsWrites(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspaceWatcher(root)
	if err != nil {
		t.Fatalf("NewWorkspaceWatcher() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "app.js"), []byte("console.log(1)"), 0644); err != nil {
		t.Fatal(err)
	}

	files := waitForCollect(t, w, "app.js")
	if files["app.js"] != "console.log(1)" {
		t.Errorf("Collect()[app.js] = %q, want file content", files["app.js"])
	}
}

func TestWorkspaceWatcherIgnoresVendoredTrees(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspaceWatcher(root)
	if err != nil {
		t.Fatalf("NewWorkspaceWatcher() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.MkdirAll(filepath.Join(root, "node_modules", "react"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "node_modules", "react", "index.js"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>"), 0644); err != nil {
		t.Fatal(err)
	}

	files := waitForCollect(t, w, "index.html")
	if _, ok := files[filepath.Join("node_modules", "react", "index.js")]; ok {
		t.Error("Collect() included a node_modules file")
	}
	if files["index.html"] != "<html>" {
		t.Errorf("Collect()[index.html] = %q", files["index.html"])
	}
}

func TestWorkspaceWatcherNestedDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspaceWatcher(root)
	if err != nil {
		t.Fatalf("NewWorkspaceWatcher() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	// Directory created after the watcher started must still be seen.
	if err := os.MkdirAll(filepath.Join(root, "src", "components"), 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a beat to register the new directories.
	time.Sleep(100 * time.Millisecond)
	target := filepath.Join("src", "components", "App.tsx")
	if err := os.WriteFile(filepath.Join(root, target), []byte("export {}"), 0644); err != nil {
		t.Fatal(err)
	}

	files := waitForCollect(t, w, target)
	if files[target] != "export {}" {
		t.Errorf("Collect()[%s] = %q, want file content", target, files[target])
	}
}
