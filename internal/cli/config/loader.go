package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// AppName names the XDG config and state directories.
const AppName = "wq"

// EnvPrefix is the prefix of wq environment variables.
const EnvPrefix = "WQ_"

// URIEnvVar overrides the target node address.
const URIEnvVar = "SCYLLA_URI"

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configFileNames = []string{"wq.yaml", "wq.yml"}

// flagKeys maps flag names to config keys. Flags not listed here are
// command options and never reach the config.
var flagKeys = map[string]string{
	"type":             "target.type",
	"uri":              "target.uri",
	"keyspace":         "target.keyspace",
	"database":         "target.database",
	"username":         "target.username",
	"password":         "target.password",
	"consistency":      "target.consistency",
	"connect-timeout":  "target.connect_timeout",
	"metadata-refresh": "target.metadata_refresh",
	"preview-file":     "preview_file",
	"history-file":     "history_file",
	"state-file":       "state_file",
	"verbose":          "verbose",
	"no-color":         "no_color",
}

var (
	k              = koanf.New(".")
	configFileUsed string
)

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// defaults returns the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"target.type":             DefaultType,
		"target.uri":              DefaultURI,
		"target.consistency":      DefaultConsistency,
		"target.connect_timeout":  DefaultConnectTimeout.String(),
		"target.metadata_refresh": DefaultMetadataRefresh.String(),
		"preview_file":            DefaultPreviewFile,
		"history_file":            filepath.Join(xdg.StateHome, AppName, "history"),
		"state_file":              filepath.Join(xdg.StateHome, AppName, "state.db"),
		"verbose":                 false,
		"no_color":                false,
	}
}

// configExistsIn returns the wq config file in dir, if any.
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > wq.yaml in CWD or a parent > XDG config home.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if cwd, err := os.Getwd(); err == nil {
		dir := cwd
		for i := 0; i < maxUpwardSearchLevels; i++ {
			if found := configExistsIn(dir); found != "" {
				return found
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	userCfg := filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
	if _, err := os.Stat(userCfg); err == nil {
		return userCfg
	}
	return ""
}

// loadEnvFile loads a dotenv file into the process environment. Variables
// that are already set keep their values. A missing default file is not
// an error; a missing explicit file is.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return nil
}

// envKey maps WQ_ variables onto config keys: WQ_TARGET_CONNECT_TIMEOUT
// becomes target.connect_timeout and WQ_PREVIEW_FILE becomes preview_file.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "target_options_"); ok {
		return "target.options." + rest
	}
	if rest, ok := strings.CutPrefix(key, "target_"); ok {
		return "target." + rest
	}
	return key
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile, envFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Dotenv, then environment variables. WQ_TARGET_URI wins over SCYLLA_URI.
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(URIEnvVar, ".", func(s string) string {
		if s != URIEnvVar {
			return ""
		}
		return "target.uri"
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	expandTargetEnvVars(&cfg.Target)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() any {
	return configKey{}
}

// GetConfig retrieves the config from the command context, falling back to
// the built-in defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}

// Default returns a config holding only the built-in defaults.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			Type:            DefaultType,
			URI:             DefaultURI,
			Consistency:     DefaultConsistency,
			ConnectTimeout:  DefaultConnectTimeout,
			MetadataRefresh: DefaultMetadataRefresh,
		},
		PreviewFile: DefaultPreviewFile,
		HistoryFile: filepath.Join(xdg.StateHome, AppName, "history"),
		StateFile:   filepath.Join(xdg.StateHome, AppName, "state.db"),
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in connection fields.
func expandTargetEnvVars(t *TargetConfig) {
	t.URI = expandEnvVars(t.URI)
	t.Username = expandEnvVars(t.Username)
	t.Password = expandEnvVars(t.Password)
	t.Keyspace = expandEnvVars(t.Keyspace)
	t.Database = expandEnvVars(t.Database)
	for key, v := range t.Options {
		t.Options[key] = expandEnvVars(v)
	}
}
