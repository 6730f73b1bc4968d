package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Badger needs a filesystem location to persist to.
	if cfg.Metadata.Type == "badger" {
		path, _ := cfg.Metadata.Badger["db_path"].(string)
		inMemory, _ := cfg.Metadata.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("metadata.badger: db_path is required unless in_memory is true")
		}
	}

	// S3 cannot be configured without a bucket.
	if cfg.Blob.Type == "s3" {
		if bucket, _ := cfg.Blob.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("blob.s3: bucket is required")
		}
		if region, _ := cfg.Blob.S3["region"].(string); region == "" {
			return fmt.Errorf("blob.s3: region is required")
		}
	}

	// A persistent metadata store paired with an ephemeral blob store would
	// resurrect records whose bytes are gone after every restart.
	if cfg.Metadata.Type == "badger" && cfg.Blob.Type == "memory" {
		return fmt.Errorf("blob: memory blob store cannot back a persistent metadata store")
	}

	// A sweep interval longer than retention means trash lingers well past
	// its promised window.
	if cfg.Trash.SweepEnabled && cfg.Trash.SweepInterval > cfg.Trash.Retention {
		return fmt.Errorf("trash: sweep_interval (%s) must not exceed retention (%s)",
			cfg.Trash.SweepInterval, cfg.Trash.Retention)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
