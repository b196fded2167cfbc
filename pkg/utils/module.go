package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ErrNoModule is returned when no go.mod is found above a directory.
var ErrNoModule = errors.New("no go.mod found")

// FindModuleRoot walks up from dir to the nearest directory holding a go.mod.
func FindModuleRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	for d := abs; ; {
		if FileExists(filepath.Join(d, "go.mod")) {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("%w in %s or any parent", ErrNoModule, abs)
		}
		d = parent
	}
}

// ReadModulePath returns the module path declared by the go.mod governing dir.
func ReadModulePath(dir string) (string, error) {
	root, err := FindModuleRoot(dir)
	if err != nil {
		return "", err
	}
	gomod := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(gomod) // #nosec G304 - path built from the module root
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", gomod, err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("%s declares no module path", gomod)
	}
	return path, nil
}

// GenerateOutputFilename builds "<name>.accelprof.<ext>" for a run over dir.
// The name is the last element of the module path, falling back to the
// directory name.
func GenerateOutputFilename(dir, ext string) (string, error) {
	var baseName string
	if modulePath, err := ReadModulePath(dir); err == nil {
		baseName = modulePath[strings.LastIndex(modulePath, "/")+1:]
	} else {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
		}
		baseName = filepath.Base(abs)
	}

	// Sanitize the name for filesystem use
	baseName = strings.NewReplacer(" ", "-", "_", "-", ":", "-").Replace(baseName)
	if baseName == "" || baseName == "." || baseName == string(filepath.Separator) {
		baseName = "profile"
	}
	return baseName + ".accelprof." + ext, nil
}
