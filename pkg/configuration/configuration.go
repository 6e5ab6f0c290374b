// Package configuration holds the daemon settings. Values come from one or
// more YAML or JSON files merged in order, command line flags override them.
package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/miracl/conflate"
	"gopkg.in/yaml.v3"
)

// ConfigEnvVar names a config file that is read when no --config flag is given.
const ConfigEnvVar = "SSDPD_CONFIG"

// DefaultConfigPaths returns the config files to read when none were given on
// the command line. It is empty if there is nothing to read.
func DefaultConfigPaths() []string {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return []string{p}
	}

	ucd, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(ucd, "ssdpd", name)
		if _, err := os.Stat(p); err == nil {
			return []string{p}
		}
	}
	return nil
}

// ErrNoDeviceTree is returned by Validate if no device tree file was given.
var ErrNoDeviceTree = errors.New("no device tree file given")

// ReadConfig merges the files at paths, later files win, on top of the
// defaults from EmptyRoot.
func ReadConfig(paths ...string) (*Root, error) {
	config := EmptyRoot()
	if err := config.Load(paths...); err != nil {
		return nil, err
	}
	return config, nil
}

// Load merges the files at paths into c. Values missing from the files keep
// their current value.
func (c *Root) Load(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	cf, err := conflate.FromFiles(paths...)
	if err != nil {
		return fmt.Errorf("failed to read config files: %w", err)
	}
	data, err := cf.MarshalYAML()
	if err != nil {
		return fmt.Errorf("failed to merge config files: %w", err)
	}

	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.files = append(c.files, paths...)

	return nil
}

// Files lists the config files merged into c, in the order they were read.
func (c *Root) Files() []string {
	return c.files
}
