package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root string, m Manifest) string {
	t.Helper()

	dir := filepath.Join(root, m.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{
		Name:        "pointer",
		Version:     "1.0.0",
		Description: "Pointer control",
		Executable:  "pointer",
		Actions:     []string{"move", "click"},
	})

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	p := plugins[0]
	if p.Manifest.Name != "pointer" {
		t.Errorf("expected plugin name 'pointer', got %q", p.Manifest.Name)
	}
	if p.Manifest.Description != "Pointer control" {
		t.Errorf("expected description 'Pointer control', got %q", p.Manifest.Description)
	}
	if len(p.Manifest.Actions) != 2 {
		t.Errorf("expected 2 actions, got %d", len(p.Manifest.Actions))
	}
	if p.Path != dir {
		t.Errorf("expected path %q, got %q", dir, p.Path)
	}
	if p.Executable != filepath.Join(dir, "pointer") {
		t.Errorf("expected executable inside plugin dir, got %q", p.Executable)
	}
}

func TestManager_Discover_MultiplePluginsSorted(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"system-control", "pointer"} {
		writeManifest(t, root, Manifest{Name: name, Executable: name})
	}

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "pointer" || plugins[1].Manifest.Name != "system-control" {
		t.Errorf("List() should be sorted by name, got %q, %q", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{Name: "pointer", Executable: "pointer"})

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatalf("second Discover() failed: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Errorf("removed plugin should disappear after rescan, got %d plugins", n)
	}
}

func TestManager_Discover_EmptyDir(t *testing.T) {
	manager := NewManager(t.TempDir(), nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on empty dir: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "my-plugin", Version: "2.0.0", Executable: "my-plugin-bin"})

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	p, err := manager.Get("my-plugin")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", p.Manifest.Version)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir(), nil)

	_, err := manager.Get("nonexistent-plugin")
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	pluginDir := "/path/to/plugins"
	if got := NewManager(pluginDir, nil).PluginDir(); got != pluginDir {
		t.Errorf("expected plugin dir %q, got %q", pluginDir, got)
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	root := t.TempDir()

	bad := filepath.Join(root, "bad-plugin")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, root, Manifest{Name: "no-exec"})
	if err := os.MkdirAll(filepath.Join(root, "no-manifest"), 0755); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected invalid plugins to be skipped, got %d", n)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist", nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 plugins, got %d", n)
	}
}

func TestManifest_Supports(t *testing.T) {
	m := Manifest{Actions: []string{"volume-up", "volume-down"}}
	if !m.Supports("volume-up") {
		t.Error("volume-up should be supported")
	}
	if m.Supports("move") {
		t.Error("move should not be supported")
	}
	if !(Manifest{}).Supports("anything") {
		t.Error("an empty action list accepts everything")
	}
}
