package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/idleeyan/tabsync/internal/scheduler"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// Seed is the optional first-boot provisioning file. It only fills in
// configuration the store does not already hold; it never overwrites
// values set through the API.
type Seed struct {
	WebDAV   *webdav.RemoteConfig `yaml:"webdav"`
	AutoSync *scheduler.Config    `yaml:"autoSync"`
}

// LoadSeed reads and parses the seed file at path.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return &seed, nil
}
