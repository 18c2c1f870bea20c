// Package cassandra provides the CQL session backend for wq, for Apache
// Cassandra and ScyllaDB clusters.
//
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/leapstack-labs/wq/pkg/session/cassandra"
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/gocql/gocql"
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/leapstack-labs/wq/pkg/statement"
)

// rowIter is the part of *gocql.Iter that Execute consumes.
type rowIter interface {
	Columns() []gocql.ColumnInfo
	Scan(dest ...any) bool
	Close() error
}

// Session implements session.Session on top of a gocql session.
type Session struct {
	gs      *gocql.Session
	cluster *gocql.ClusterConfig
	cfg     session.Config
	logger  *slog.Logger

	query         func(ctx context.Context, stmt string) rowIter
	createSession func(cluster *gocql.ClusterConfig) (*gocql.Session, error)
}

// New creates a new, unconnected CQL session.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{logger: logger}
	s.query = s.runQuery
	s.createSession = func(cluster *gocql.ClusterConfig) (*gocql.Session, error) {
		return cluster.CreateSession()
	}
	return s
}

func (s *Session) runQuery(ctx context.Context, stmt string) rowIter {
	return s.gs.Query(stmt).WithContext(ctx).PageSize(0).Iter()
}

// Connect builds the cluster session from cfg. URI holds one or more
// comma separated contact points.
func (s *Session) Connect(ctx context.Context, cfg session.Config) error {
	cluster, err := newCluster(cfg)
	if err != nil {
		return err
	}

	s.logger.Debug("connecting to cluster",
		slog.Any("hosts", cluster.Hosts),
		slog.String("keyspace", cfg.Keyspace),
		slog.Duration("connect_timeout", cluster.ConnectTimeout))

	gs, err := s.open(ctx, cluster)
	if err != nil {
		return err
	}

	s.gs = gs
	s.cluster = cluster
	s.cfg = cfg
	return nil
}

// open creates a gocql session for cluster, giving up when ctx is done.
func (s *Session) open(ctx context.Context, cluster *gocql.ClusterConfig) (*gocql.Session, error) {
	type result struct {
		gs  *gocql.Session
		err error
	}
	done := make(chan result, 1)
	go func() {
		gs, err := s.createSession(cluster)
		done <- result{gs, err}
	}()

	select {
	case r := <-done:
		return r.gs, r.err
	case <-ctx.Done():
		// CreateSession has no context; close whatever it returns later.
		go func() {
			if r := <-done; r.gs != nil {
				r.gs.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// newCluster translates a session config into a gocql cluster config.
func newCluster(cfg session.Config) (*gocql.ClusterConfig, error) {
	hosts := splitHosts(cfg.URI)
	if len(hosts) == 0 {
		hosts = []string{session.DefaultURI}
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	if cluster.ConnectTimeout <= 0 {
		cluster.ConnectTimeout = session.DefaultConnectTimeout
	}
	// gocql follows topology through server events; the refresh interval
	// bounds how long a down node waits before being re-probed.
	cluster.ReconnectInterval = cfg.MetadataRefresh
	if cluster.ReconnectInterval <= 0 {
		cluster.ReconnectInterval = session.DefaultMetadataRefresh
	}
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 0}
	cluster.Keyspace = cfg.Keyspace

	consistency := cfg.Consistency
	if consistency == "" {
		consistency = session.DefaultConsistency
	}
	c, err := gocql.ParseConsistencyWrapper(strings.ToUpper(consistency))
	if err != nil {
		return nil, fmt.Errorf("invalid consistency %q: %w", consistency, err)
	}
	cluster.Consistency = c

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if dc := cfg.Options["local_dc"]; dc != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(dc))
	}
	return cluster, nil
}

// splitHosts splits a comma separated contact point list.
func splitHosts(uri string) []string {
	var hosts []string
	for _, h := range strings.Split(uri, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Execute runs one CQL statement unpaged and decodes every row.
func (s *Session) Execute(ctx context.Context, stmt string) (*session.Result, error) {
	if s.gs == nil {
		return nil, fmt.Errorf("cluster session not established")
	}

	if statement.IsContextSwitch(stmt) {
		return s.useKeyspace(ctx, stmt)
	}

	iter := s.query(ctx, stmt)
	cols := iter.Columns()

	if len(cols) == 0 {
		if err := iter.Close(); err != nil {
			return nil, &session.ExecutionError{Statement: stmt, Err: err}
		}
		return &session.Result{}, nil
	}

	res := &session.Result{HasRows: true, Columns: make([]string, len(cols))}
	for i, col := range cols {
		res.Columns[i] = col.Name
	}

	for {
		dest := newDest(cols)
		if !iter.Scan(dest...) {
			break
		}
		row := make(session.Row, len(cols))
		for i, d := range dest {
			row[i] = nullString(d)
		}
		res.Rows = append(res.Rows, row)
	}

	if err := iter.Close(); err != nil {
		if isUnmarshalError(err) {
			return nil, &session.DecodeError{Err: err}
		}
		return nil, &session.ExecutionError{Statement: stmt, Err: err}
	}

	s.logger.Debug("statement executed", slog.Int("rows", len(res.Rows)))
	return res, nil
}

// useKeyspace switches the session to the keyspace named by a USE
// statement. gocql refuses USE on a shared session, so the session is
// rebuilt with the new keyspace and the old one is closed. On failure the
// old session stays in place.
func (s *Session) useKeyspace(ctx context.Context, stmt string) (*session.Result, error) {
	ks, err := parseKeyspace(stmt)
	if err != nil {
		return nil, &session.ExecutionError{Statement: stmt, Err: err}
	}

	cfg := s.cfg
	cfg.Keyspace = ks
	cluster, err := newCluster(cfg)
	if err != nil {
		return nil, &session.ExecutionError{Statement: stmt, Err: err}
	}

	gs, err := s.open(ctx, cluster)
	if err != nil {
		return nil, &session.ExecutionError{Statement: stmt, Err: err}
	}

	s.logger.Debug("switched keyspace", slog.String("keyspace", ks))
	s.gs.Close()
	s.gs = gs
	s.cluster = cluster
	s.cfg = cfg
	return &session.Result{}, nil
}

// parseKeyspace extracts the keyspace name from a USE statement. Unquoted
// names are case-insensitive and folded to lower case; double-quoted names
// keep their case and may contain doubled quotes.
func parseKeyspace(stmt string) (string, error) {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
	if len(name) < 3 || !strings.EqualFold(name[:3], "use") {
		return "", fmt.Errorf("not a USE statement: %q", stmt)
	}
	name = strings.TrimSpace(name[3:])

	if strings.HasPrefix(name, `"`) {
		if len(name) < 2 || !strings.HasSuffix(name, `"`) {
			return "", fmt.Errorf("unterminated quoted keyspace name: %s", name)
		}
		name = strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
		if name == "" {
			return "", fmt.Errorf("empty keyspace name")
		}
		return name, nil
	}

	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return "", fmt.Errorf("invalid keyspace name: %q", name)
	}
	return strings.ToLower(name), nil
}

// newDest allocates one pointer-to-pointer per column so that null values
// decode to a nil inner pointer.
func newDest(cols []gocql.ColumnInfo) []any {
	dest := make([]any, len(cols))
	for i, col := range cols {
		elem := newElem(col.TypeInfo)
		if elem == nil {
			var v any
			dest[i] = &v
			continue
		}
		dest[i] = reflect.New(reflect.TypeOf(elem)).Interface()
	}
	return dest
}

// isUnmarshalError reports whether err came from decoding a column value.
func isUnmarshalError(err error) bool {
	var ue gocql.UnmarshalError
	return errors.As(err, &ue) || strings.Contains(err.Error(), "can not unmarshal")
}

// Close closes the cluster session.
func (s *Session) Close() error {
	if s.gs != nil {
		s.logger.Debug("closing cluster session")
		s.gs.Close()
		s.gs = nil
	}
	return nil
}

// Describe reports details of the coordinator node from system.local.
func (s *Session) Describe(ctx context.Context) ([]session.Fact, error) {
	if s.gs == nil {
		return nil, fmt.Errorf("cluster session not established")
	}

	var release, cluster, dc, rack, cqlVersion string
	err := s.gs.Query(`SELECT release_version, cluster_name, data_center, rack, cql_version FROM system.local`).
		WithContext(ctx).
		Scan(&release, &cluster, &dc, &rack, &cqlVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query system.local: %w", err)
	}

	return []session.Fact{
		{Name: "Release version", Value: release},
		{Name: "Cluster name", Value: cluster},
		{Name: "Data center", Value: dc},
		{Name: "Rack", Value: rack},
		{Name: "CQL version", Value: cqlVersion},
	}, nil
}

func init() {
	session.Register("cassandra", func(logger *slog.Logger) session.Session { return New(logger) })
	session.Register("scylla", func(logger *slog.Logger) session.Session { return New(logger) })
}
