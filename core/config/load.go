package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	return loadFs(afero.NewBasePathFs(afero.NewOsFs(), path), path)
}

func loadFs(configFs afero.Fs, dir string) (*Configuration, error) {
	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}

	// Start from the defaults so older files pick up new keys, aliases are
	// replaced rather than merged.
	out := defaultConfig()
	out.Aliases = nil
	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, ConfigurationName), err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, ConfigurationName), err)
	}
	out.configFs = configFs
	out.dir = dir
	return out, nil
}

// Initialize writes the default configuration to dir, creating it if needed,
// and loads it. Existing configuration files are left alone.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(absDir, 0700); err != nil {
		return nil, err
	}
	configFs := afero.NewBasePathFs(osFs, absDir)

	switch _, err := configFs.Stat(ConfigurationName); {
	case err == nil:
		logger.Printf("Using existing %s\n", filepath.Join(absDir, ConfigurationName))
	case os.IsNotExist(err):
		logger.Printf("Writing %s\n", filepath.Join(absDir, ConfigurationName))
		if err := afero.WriteFile(configFs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return loadFs(configFs, absDir)
}
