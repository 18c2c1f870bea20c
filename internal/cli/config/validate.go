package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/wq/pkg/session"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	if c.PreviewFile == "" {
		return fmt.Errorf("preview_file must not be empty")
	}
	if filepath.Base(c.PreviewFile) != c.PreviewFile {
		return fmt.Errorf("preview_file must be a file name, got %q", c.PreviewFile)
	}
	return nil
}

// Validate checks the target type and timeouts.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	t.Type = strings.ToLower(t.Type)
	if !session.IsRegistered(t.Type) {
		return &session.UnknownTypeError{Type: t.Type, Available: session.ListTypes()}
	}
	if t.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", t.ConnectTimeout)
	}
	if t.MetadataRefresh <= 0 {
		return fmt.Errorf("metadata_refresh must be positive, got %s", t.MetadataRefresh)
	}
	return nil
}
