package config

import "strings"

// Classifier decides which packages belong to the program being profiled.
// With a root module set, only the module and its subpackages are user code,
// even when their paths look like hosted dependencies.
type Classifier struct {
	config     *Config
	rootModule string
}

// NewClassifier creates a classifier for the given root module path, which
// may be empty when the analyzed code is not inside a module.
func NewClassifier(config *Config, rootModule string) *Classifier {
	return &Classifier{config: config, rootModule: rootModule}
}

// RootModule returns the module path the classifier was built with.
func (c *Classifier) RootModule() string {
	return c.rootModule
}

// IsUserDefined reports whether packagePath is code of the profiled program.
func (c *Classifier) IsUserDefined(packagePath string) bool {
	if c.config.IsStandardLibrary(packagePath) {
		return false
	}
	if c.rootModule != "" {
		return packagePath == c.rootModule || strings.HasPrefix(packagePath, c.rootModule+"/")
	}
	return !c.config.IsDependency(packagePath)
}

// IsStandardLibrary reports whether packagePath is part of the standard library.
func (c *Classifier) IsStandardLibrary(packagePath string) bool {
	return c.config.IsStandardLibrary(packagePath)
}
