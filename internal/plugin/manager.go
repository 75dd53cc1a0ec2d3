package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrPluginNotFound is returned when a requested plugin has not been discovered.
var ErrPluginNotFound = errors.New("plugin not found")

// ManifestFile is the manifest name looked for in each plugin directory.
const ManifestFile = "plugin.json"

// Manager discovers plugins below a directory.
type Manager struct {
	pluginDir string
	log       *zap.Logger

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager returns a Manager for pluginDir.
func NewManager(pluginDir string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		pluginDir: pluginDir,
		log:       log,
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Each subdirectory holding a
// plugin.json manifest is a plugin; unreadable manifests are skipped.
// A missing directory yields no plugins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	info, err := os.Stat(m.pluginDir)
	switch {
	case os.IsNotExist(err):
		m.replace(found)
		return nil
	case err != nil:
		return errors.Wrapf(err, "stat plugin dir %s", m.pluginDir)
	case !info.IsDir():
		m.replace(found)
		return nil
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return errors.Wrapf(err, "read plugin dir %s", m.pluginDir)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginPath := filepath.Join(m.pluginDir, entry.Name())
		data, err := os.ReadFile(filepath.Join(pluginPath, ManifestFile))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			m.log.Warn("skipping plugin", zap.String("path", pluginPath), zap.Error(err))
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			m.log.Warn("skipping plugin with invalid manifest", zap.String("path", pluginPath), zap.Error(err))
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			m.log.Warn("skipping plugin without name or executable", zap.String("path", pluginPath))
			continue
		}

		found[manifest.Name] = &Plugin{
			Manifest:   manifest,
			Path:       pluginPath,
			Executable: filepath.Join(pluginPath, manifest.Executable),
		}
		m.log.Debug("plugin discovered", zap.String("plugin", manifest.Name), zap.String("version", manifest.Version))
	}

	m.replace(found)
	return nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	m.plugins = plugins
	m.mu.Unlock()
}

// Get returns a plugin by name or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, errors.Wrap(ErrPluginNotFound, name)
	}
	return p, nil
}

// List returns all discovered plugins ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
