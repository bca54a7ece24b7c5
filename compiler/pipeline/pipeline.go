// Package pipeline loads the ordered optimizer-pass configuration
// compiler/driver runs, from a YAML file (gopkg.in/yaml.v3), so a
// pass can be turned off without a recompile (spec.md §6: "passes can
// be selectively disabled").
package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/EmiliaPaz/mil-tools/compiler/pass"
)

// Config is the on-disk shape of a pipeline configuration file:
//
//	disable:
//	  - inline
//	  - eliminate-duplicates
type Config struct {
	Disable []string `yaml:"disable"`
}

// Load reads and parses a Config from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read pipeline config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse pipeline config %s", path)
	}

	return cfg, nil
}

// Build resolves Config into a pass.Pipeline, dropping every pass
// named in Disable. An unknown name is a configuration error rather
// than a silent no-op, per spec §7.2's "never converts such a
// situation into a silent no-op."
func (c Config) Build() (pass.Pipeline, error) {
	known := map[string]bool{}
	for _, p := range pass.DefaultPasses() {
		known[p.Name()] = true
	}

	disabled := map[string]bool{}

	for _, name := range c.Disable {
		if !known[name] {
			return pass.Pipeline{}, errors.New("pipeline config: unknown pass %q", name)
		}

		disabled[name] = true
	}

	return pass.NewPipeline(disabled), nil
}

// Default is the pipeline compiler/driver runs when no config file is
// given: every pass enabled, in DefaultPasses' order.
func Default() pass.Pipeline {
	return pass.NewPipeline(nil)
}
