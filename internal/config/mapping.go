package config

import (
	"os"

	"github.com/BartekS5/postmig/pkg/models"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadMapping reads the table/collection mapping file from the given path.
// An empty path yields the default mapping. The result has every unset
// name filled in and is validated.
func LoadMapping(filePath string) (*models.MappingSchema, error) {
	mapping := &models.MappingSchema{}

	if filePath != "" {
		bytes, err := os.ReadFile(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read mapping file '%s'", filePath)
		}
		if err := yaml.Unmarshal(bytes, mapping); err != nil {
			return nil, errors.Wrapf(err, "failed to parse mapping file '%s'", filePath)
		}
	}

	mapping = mapping.WithDefaults()
	if err := mapping.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid mapping file '%s'", filePath)
	}
	return mapping, nil
}
