package detector

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Environment overrides for the landmark service location.
const (
	EnvServiceScript = "MUDRA_MEDIAPIPE_SCRIPT"
	EnvServicePython = "MUDRA_MEDIAPIPE_PYTHON"
)

const scriptName = "mediapipe_service.py"

// ServicePaths locate the MediaPipe service.
type ServicePaths struct {
	Script string
	Python string
}

// LocateService finds the service script and a Python interpreter. The
// environment wins, then paths relative to the working directory, then
// paths next to the executable, then ~/.mudra. Script is empty when no
// script exists; Python falls back to python3 on PATH.
func LocateService() ServicePaths {
	var roots []string
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd, filepath.Dir(wd), filepath.Dir(filepath.Dir(wd)))
	}
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".mudra"))
	}
	return locate(roots, os.Getenv(EnvServiceScript), os.Getenv(EnvServicePython))
}

func locate(roots []string, script, python string) ServicePaths {
	p := ServicePaths{Script: script, Python: python}
	if p.Script == "" {
		p.Script = firstExisting(roots, filepath.Join("scripts", scriptName))
	}
	if p.Python == "" {
		p.Python = firstExisting(roots, filepath.Join("venv", "bin", "python"))
	}
	if p.Python == "" {
		if path, err := exec.LookPath("python3"); err == nil {
			p.Python = path
		} else {
			p.Python = "python3"
		}
	}
	return p
}

func firstExisting(roots []string, rel string) string {
	for _, root := range roots {
		path := filepath.Join(root, rel)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
