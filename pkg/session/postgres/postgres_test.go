package postgres

import (
	"testing"
	"time"

	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  session.Config
		want string
	}{
		{
			name: "defaults",
			cfg:  session.Config{},
			want: "host=localhost port=5432 sslmode=disable",
		},
		{
			name: "host and port",
			cfg:  session.Config{URI: "db.internal:6543", Database: "app", Username: "wq"},
			want: "host=db.internal port=6543 sslmode=disable dbname=app user=wq",
		},
		{
			name: "host without port",
			cfg:  session.Config{URI: "db.internal", Password: "secret"},
			want: "host=db.internal port=5432 sslmode=disable password=secret",
		},
		{
			name: "sslmode and timeout",
			cfg: session.Config{
				URI:            "db:5432",
				Options:        map[string]string{"sslmode": "require"},
				ConnectTimeout: 3 * time.Second,
			},
			want: "host=db port=5432 sslmode=require connect_timeout=3",
		},
		{
			name: "url passthrough",
			cfg:  session.Config{URI: "postgres://u:p@db:5432/app"},
			want: "postgres://u:p@db:5432/app",
		},
		{
			name: "key value passthrough",
			cfg:  session.Config{URI: "host=db user=u"},
			want: "host=db user=u",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.cfg))
		})
	}
}

func TestRegistered(t *testing.T) {
	assert.True(t, session.IsRegistered("postgres"))
}
