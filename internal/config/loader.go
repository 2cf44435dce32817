package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadOptions reads a YAML (or JSON) options file on top of the defaults.
// Keys missing from the file keep their default value.
func LoadOptions(filePath string) (Options, error) {
	opts := DefaultOptions()

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return opts, errors.Wrapf(err, "failed to read options file '%s'", filePath)
	}

	if err := yaml.Unmarshal(bytes, &opts); err != nil {
		return opts, errors.Wrapf(err, "failed to parse options file '%s'", filePath)
	}

	return opts, nil
}
