package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "github.com/tanguc/vobotty/dev/env"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Validator is implemented by config structs that can check themselves after
// all files have been merged.
type Validator interface {
	Validate() error
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath returns the path of the local override file for `name`,
// ex. "config.json5" -> "config.local.json5".
func LocalPath(name string) string {
	prefixname, ext := splitExt(filepath.Base(name))
	if ext == "" {
		return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local", prefixname))
	}
	return filepath.Join(
		filepath.Dir(name),
		fmt.Sprintf("%s.local.%s", prefixname, ext),
	)
}

func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a json5 configuration file. `name` should come with a file
// extension, the following files are merged (higher number wins):
//  1. <name>.<ext>
//  2. <name>.local.<ext>
//
// `name` may start with "<dev_state>". If neither file exists, os.ErrNotExist
// is returned.
func ReadConfig[T any](name string) (T, error) {
	var out T

	name, err := devenv.ResolvePath(name)
	if err != nil {
		return out, err
	}

	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	localFilepath := LocalPath(name)
	var override T
	foundLocal, err := readInto(localFilepath, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}

	if v, ok := any(&out).(Validator); ok {
		err = v.Validate()
		if err != nil {
			return out, fmt.Errorf("invalid config %s: %w", name, err)
		}
	}

	return out, nil
}

// ReadRecursively is ReadConfig but it goes up the filesystem from the working
// directory until it finds a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	root, err := filepath.Abs("/")
	if err != nil {
		return defaultOut, err
	}
	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for current != root {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			current = filepath.Dir(current)
			continue
		}
		if err != nil {
			return defaultOut, err
		}
		return config, nil
	}

	return defaultOut, os.ErrNotExist
}
