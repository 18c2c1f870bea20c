package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/wq/internal/cli/config"
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// InfoOptions holds options for the info command.
type InfoOptions struct {
	Offline bool
	YAML    bool
}

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	opts := &InfoOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the resolved target and server details",
		Long: `Show the resolved connection settings after merging defaults, config
file, environment and flags. Unless --offline is given, wq also connects to
the target and reports what the server says about itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Do not connect to the target")
	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "Print the resolved settings as a wq.yaml document and exit")

	return cmd
}

func runInfo(cmd *cobra.Command, opts *InfoOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if opts.YAML {
		return writeConfigYAML(r.Writer(), cmdCtx.Cfg)
	}

	r.Header("Target")
	renderSettings(r.Writer(), cmdCtx.Cfg)
	if path := config.GetConfigFileUsed(); path != "" {
		r.Muted("Config file: " + path)
	}

	if opts.Offline {
		return nil
	}

	facts, err := describeTarget(cmd.Context(), cmdCtx)
	if err != nil {
		return err
	}

	r.Println()
	r.Header("Server")
	if len(facts) == 0 {
		r.Muted("No server details available for this backend")
		return nil
	}
	renderFacts(r.Writer(), facts)
	return nil
}

func describeTarget(ctx context.Context, cmdCtx *CommandContext) ([]session.Fact, error) {
	eng, cleanup, err := cmdCtx.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	d, ok := eng.Session().(session.Describer)
	if !ok {
		return nil, nil
	}
	facts, err := d.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to describe target: %w", err)
	}
	return facts, nil
}

// settingRows lists the resolved settings in display order.
func settingRows(cfg *config.Config) [][2]string {
	t := cfg.Target
	password := ""
	if t.Password != "" {
		password = "********"
	}

	rows := [][2]string{
		{"type", t.Type},
		{"uri", t.URI},
		{"keyspace", t.Keyspace},
		{"database", t.Database},
		{"username", t.Username},
		{"password", password},
		{"consistency", t.Consistency},
		{"connect timeout", t.ConnectTimeout.String()},
		{"metadata refresh", t.MetadataRefresh.String()},
		{"preview file", cfg.PreviewFile},
		{"history file", cfg.HistoryFile},
		{"state file", cfg.StateFile},
	}

	keys := make([]string, 0, len(t.Options))
	for k := range t.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{"option " + strings.ReplaceAll(k, "_", " "), t.Options[k]})
	}
	return rows
}

func renderSettings(w io.Writer, cfg *config.Config) {
	titleCaser := cases.Title(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Setting", "Value"})
	for _, row := range settingRows(cfg) {
		t.AppendRow(table.Row{titleCaser.String(row[0]), row[1]})
	}
	t.Render()
}

func renderFacts(w io.Writer, facts []session.Fact) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Property", "Value"})
	for _, f := range facts {
		t.AppendRow(table.Row{f.Name, f.Value})
	}
	t.Render()
}

// configDocument mirrors the wq.yaml layout.
type configDocument struct {
	Target      targetDocument `yaml:"target"`
	PreviewFile string         `yaml:"preview_file"`
	HistoryFile string         `yaml:"history_file,omitempty"`
	StateFile   string         `yaml:"state_file,omitempty"`
}

type targetDocument struct {
	Type            string            `yaml:"type"`
	URI             string            `yaml:"uri"`
	Keyspace        string            `yaml:"keyspace,omitempty"`
	Database        string            `yaml:"database,omitempty"`
	Username        string            `yaml:"username,omitempty"`
	Password        string            `yaml:"password,omitempty"`
	Consistency     string            `yaml:"consistency,omitempty"`
	ConnectTimeout  string            `yaml:"connect_timeout"`
	MetadataRefresh string            `yaml:"metadata_refresh"`
	Options         map[string]string `yaml:"options,omitempty"`
}

// writeConfigYAML writes cfg in the config file format. The password is
// replaced by a reference to the environment.
func writeConfigYAML(w io.Writer, cfg *config.Config) error {
	t := cfg.Target
	doc := configDocument{
		Target: targetDocument{
			Type:            t.Type,
			URI:             t.URI,
			Keyspace:        t.Keyspace,
			Database:        t.Database,
			Username:        t.Username,
			Consistency:     t.Consistency,
			ConnectTimeout:  t.ConnectTimeout.String(),
			MetadataRefresh: t.MetadataRefresh.String(),
			Options:         t.Options,
		},
		PreviewFile: cfg.PreviewFile,
		HistoryFile: cfg.HistoryFile,
		StateFile:   cfg.StateFile,
	}
	if t.Password != "" {
		doc.Target.Password = "${WQ_TARGET_PASSWORD}"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
