package config

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/devlopersumit/issuehub/internal/errors"
)

// SupportedVersions is the range of config file versions this build understands
const SupportedVersions = "^1"

// ParseFile reads and parses an issuehub.yml defaults file
func ParseFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewTransientf("failed to read config file: %w", err)
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewPermanentf("failed to parse config YAML: %w", err)
	}

	if err := checkVersion(file.Version); err != nil {
		return nil, err
	}
	return &file, nil
}

// checkVersion accepts an empty version or one inside SupportedVersions
func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.NewPermanentf("invalid config version %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return errors.NewPermanentf("invalid version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return errors.NewPermanentf("unsupported config version %s (supported: %s)", version, SupportedVersions)
	}
	return nil
}
