// Package config provides configuration management for the wq CLI.
//
// Configuration is layered: defaults, then a wq.yaml file, then environment
// variables (WQ_ prefix, plus SCYLLA_URI), then explicitly set flags.
package config

import (
	"time"

	"github.com/leapstack-labs/wq/pkg/report"
	"github.com/leapstack-labs/wq/pkg/session"
)

// Config holds all CLI configuration options.
type Config struct {
	Target      TargetConfig `koanf:"target"`
	PreviewFile string       `koanf:"preview_file"`
	// HistoryFile keeps interactive input history.
	HistoryFile string `koanf:"history_file"`
	// StateFile is the run history database. Empty disables recording.
	StateFile string `koanf:"state_file"`
	Verbose   bool   `koanf:"verbose"`
	NoColor   bool   `koanf:"no_color"`
}

// TargetConfig describes the database a run connects to.
type TargetConfig struct {
	Type            string            `koanf:"type"`
	URI             string            `koanf:"uri"`
	Keyspace        string            `koanf:"keyspace"`
	Database        string            `koanf:"database"`
	Username        string            `koanf:"username"`
	Password        string            `koanf:"password"`
	Consistency     string            `koanf:"consistency"`
	ConnectTimeout  time.Duration     `koanf:"connect_timeout"`
	MetadataRefresh time.Duration     `koanf:"metadata_refresh"`
	Options         map[string]string `koanf:"options"`
}

// Default configuration values.
const (
	DefaultType            = session.DefaultType
	DefaultURI             = session.DefaultURI
	DefaultConsistency     = session.DefaultConsistency
	DefaultConnectTimeout  = session.DefaultConnectTimeout
	DefaultMetadataRefresh = session.DefaultMetadataRefresh
	DefaultPreviewFile     = report.PreviewFileName
)

// Session converts the target into a session configuration.
func (t TargetConfig) Session() session.Config {
	opts := make(map[string]string, len(t.Options))
	for k, v := range t.Options {
		opts[k] = v
	}
	return session.Config{
		Type:            t.Type,
		URI:             t.URI,
		Keyspace:        t.Keyspace,
		Database:        t.Database,
		Username:        t.Username,
		Password:        t.Password,
		Consistency:     t.Consistency,
		ConnectTimeout:  t.ConnectTimeout,
		MetadataRefresh: t.MetadataRefresh,
		Options:         opts,
	}
}
