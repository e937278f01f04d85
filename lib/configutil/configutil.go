// Package configutil reads layered json5 configuration: a base file
// plus an optional ".local." sibling that wins field by field. The
// local file holds per-machine settings (output paths, debug toggles)
// and stays out of version control.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localVariant derives the override path: "dir/config.json5" becomes
// "dir/config.local.json5".
func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// decodeInto reads and parses one file into out, reporting whether the
// file existed. A missing or empty file is not an error.
func decodeInto[T any](path string, out *T) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(data, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads name plus its ".local." sibling and merges the two,
// the local file winning on conflicts. When neither file exists the
// error is os.ErrNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T

	baseFound, err := decodeInto(name, &out)
	if err != nil {
		return out, err
	}

	localPath := localVariant(name)
	var local T
	localFound, err := decodeInto(localPath, &local)
	if err != nil {
		return out, err
	}
	if localFound {
		err = mergo.Merge(&out, local, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Debug("applied local config overrides", "path", localPath)
	}

	if !baseFound && !localFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the working directory up toward the
// filesystem root and returns the first directory where ReadConfig
// finds the named file.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if !os.IsNotExist(err) {
			return config, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}
