package phpboot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultInstallRoot is where php is installed when no install_root is configured.
const DefaultInstallRoot = "~/.pocketmine-manager/php"

type Config struct {
	// The directory php is installed to. A leading ~ is expanded to the user's home directory. Relative paths
	// are relative to the directory where the configuration file resides.
	InstallRoot string `json:"install_root,omitempty" yaml:"install_root,omitempty" jsonschema_description:"directory php is installed to"`

	// The platform id to install for. Defaults to the current GOOS.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty" jsonschema_description:"platform id such as linux or darwin"`

	// The release metadata endpoint. The channel is added as a query parameter.
	MetadataURL string `json:"metadata_url,omitempty" yaml:"metadata_url,omitempty" jsonschema_description:"release metadata endpoint"`

	// The release channel to read php_version from.
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty" jsonschema_description:"release channel"`

	// Template for the artifact download url. Vars are version, platform and filename.
	ArtifactURL string `json:"artifact_url,omitempty" yaml:"artifact_url,omitempty" jsonschema_description:"artifact url template"`

	// Template for the artifact file name. Vars are version and platform.
	ArtifactName string `json:"artifact_name,omitempty" yaml:"artifact_name,omitempty" jsonschema_description:"artifact file name template"`

	// A minimum version (7.3) or semver constraint (>= 7.3, < 8). When set, an installed php that doesn't
	// satisfy it is replaced. When empty any installed version is used.
	MinVersion string `json:"min_version,omitempty" yaml:"min_version,omitempty" jsonschema_description:"minimum acceptable installed version or semver constraint"`

	// Maximum number of redirects to follow per request.
	MaxRedirects int `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty" jsonschema_description:"maximum redirects to follow per request"`

	Filename string `json:"-" yaml:"-"`
}

// LoadConfigFile loads and validates a yaml or json config file.
func LoadConfigFile(ctx context.Context, filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg, err := ConfigFromYAML(ctx, data)
	if err != nil {
		return nil, err
	}
	cfg.Filename = filename
	return cfg, nil
}

// ConfigFromYAML validates and decodes a yaml or json config.
func ConfigFromYAML(ctx context.Context, data []byte) (*Config, error) {
	err := validateConfig(ctx, data)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolved returns a copy of c with defaults applied and install_root made absolute.
func (c *Config) Resolved() (*Config, error) {
	cfg := *c
	if cfg.InstallRoot == "" {
		cfg.InstallRoot = DefaultInstallRoot
	}
	root, err := homedir.Expand(cfg.InstallRoot)
	if err != nil {
		return nil, err
	}
	root = filepath.FromSlash(root)
	if !filepath.IsAbs(root) && cfg.Filename != "" {
		root = filepath.Join(filepath.Dir(cfg.Filename), root)
	}
	cfg.InstallRoot, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if cfg.Platform == "" {
		cfg.Platform = runtime.GOOS
	}
	if cfg.MetadataURL == "" {
		cfg.MetadataURL = DefaultMetadataURL
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.ArtifactName == "" {
		cfg.ArtifactName = DefaultArtifactName
	}
	if cfg.ArtifactURL == "" {
		cfg.ArtifactURL = DefaultArtifactURL
	}
	if cfg.MaxRedirects < 0 {
		return nil, fmt.Errorf("max_redirects must not be negative")
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	_, err = cfg.versionConstraint()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) versionConstraint() (*semver.Constraints, error) {
	minVersion := strings.TrimSpace(c.MinVersion)
	if minVersion == "" {
		return nil, nil
	}
	if minVersion[0] >= '0' && minVersion[0] <= '9' {
		minVersion = ">= " + minVersion
	}
	constraint, err := semver.NewConstraint(minVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid min_version %q: %w", c.MinVersion, err)
	}
	return constraint, nil
}

// AcceptsVersion reports whether an installed version satisfies min_version.
func (c *Config) AcceptsVersion(version string) (bool, error) {
	constraint, err := c.versionConstraint()
	if err != nil {
		return false, err
	}
	if constraint == nil {
		return true, nil
	}
	ver, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return constraint.Check(ver), nil
}
