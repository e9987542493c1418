package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for semantic errors. It returns every problem
// found, not just the first, so a bad file can be fixed in one pass.
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Project.Root == "" {
		errs = append(errs, ValidationError{Field: "project.root", Message: "is required"})
	}

	stages := []struct {
		field string
		sc    StageConfig
	}{
		{"stages.install", cfg.Stages.Install},
		{"stages.build", cfg.Stages.Build},
		{"stages.lint", cfg.Stages.Lint},
		{"stages.typecheck", cfg.Stages.Typecheck},
		{"stages.test", cfg.Stages.Test},
		{"stages.docs", cfg.Stages.Docs},
		{"doctor.unused", cfg.Doctor.Unused},
	}
	for _, s := range stages {
		if s.sc.Command == "" {
			errs = append(errs, ValidationError{Field: s.field + ".command", Message: "is required"})
		}
		if s.sc.Timeout != "" {
			if _, err := time.ParseDuration(s.sc.Timeout); err != nil {
				errs = append(errs, ValidationError{
					Field:   s.field + ".timeout",
					Message: fmt.Sprintf("invalid duration %q", s.sc.Timeout),
				})
			}
		}
	}

	return errs
}
