package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Embedded default configuration
//
//go:embed default_config.toml
var embeddedConfigData []byte

// LocalConfigName is the file that overrides the embedded defaults.
const LocalConfigName = "accelprof.toml"

var (
	validFormats    = []string{"json", "yaml", "msgpack", "text", "dot"}
	validOrders     = []string{"source", "bottomup"}
	validAlgorithms = []string{"rta", "cha", "static", "vta"}
)

// Config holds the application configuration.
type Config struct {
	Packages  PackageConfig   `toml:"packages"`
	Footprint FootprintConfig `toml:"footprint"`
	Calls     CallsConfig     `toml:"calls"`
	Loops     LoopsConfig     `toml:"loops"`
	Output    OutputConfig    `toml:"output"`
}

// PackageConfig holds package classification patterns.
type PackageConfig struct {
	StdlibPatterns     []string `toml:"stdlib_patterns"`
	StdlibPrefixes     []string `toml:"stdlib_prefixes"`
	DependencyPatterns []string `toml:"dependency_patterns"`
}

// FootprintConfig controls the type footprint calculator.
type FootprintConfig struct {
	OpaqueStructs []string `toml:"opaque_structs"`
	TargetArch    string   `toml:"target_arch"`
}

// CallsConfig controls call edge resolution.
type CallsConfig struct {
	IgnoredCallees  []string `toml:"ignored_callees"`
	IgnoredPrefixes []string `toml:"ignored_prefixes"`
}

// LoopsConfig controls loop characterization.
type LoopsConfig struct {
	MaxSmallTripCount uint64 `toml:"max_small_trip_count"`
}

// OutputConfig holds report defaults the CLI can override.
type OutputConfig struct {
	Format    string `toml:"format"`
	Order     string `toml:"order"`
	Algorithm string `toml:"algorithm"`
}

// DefaultConfig returns the embedded configuration, replaced by a local
// accelprof.toml when one exists in the working directory.
func DefaultConfig() (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}

	if _, err := os.Stat(LocalConfigName); err == nil {
		localConfig, err := LoadFromFile(LocalConfigName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load local config %s: %v\n", LocalConfigName, err)
			return &config, nil
		}
		return localConfig, nil
	}

	return &config, nil
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their embedded default values.
func LoadFromFile(filepath string) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}
	if _, err := toml.DecodeFile(filepath, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", filepath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath, err)
	}
	return &config, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("unsupported output format %q (want one of %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if !contains(validOrders, c.Output.Order) {
		return fmt.Errorf("unsupported visit order %q (want one of %s)", c.Output.Order, strings.Join(validOrders, ", "))
	}
	if !contains(validAlgorithms, c.Output.Algorithm) {
		return fmt.Errorf("unsupported call graph algorithm %q (want one of %s)", c.Output.Algorithm, strings.Join(validAlgorithms, ", "))
	}
	return nil
}

// IsStandardLibrary checks if a package is from the Go standard library.
func (c *Config) IsStandardLibrary(packagePath string) bool {
	for _, pattern := range c.Packages.StdlibPatterns {
		if packagePath == pattern || strings.HasPrefix(packagePath, pattern+"/") {
			return true
		}
	}

	for _, prefix := range c.Packages.StdlibPrefixes {
		if strings.HasPrefix(packagePath, prefix) {
			return true
		}
	}

	return false
}

// IsDependency checks if a package is a third-party dependency.
func (c *Config) IsDependency(packagePath string) bool {
	for _, pattern := range c.Packages.DependencyPatterns {
		if strings.HasPrefix(packagePath, pattern) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
