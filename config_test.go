package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	config, err := LoadConfig(afero.NewMemMapFs(), "/nowhere/config.yaml")
	require.NoError(t, err)
	assert.Empty(t, config.NamedQueries)
	assert.Empty(t, config.Sessions)
}

func TestConfigRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	config, err := LoadConfig(fs, "/home/alice/.config/dbcrust/config.yaml")
	require.NoError(t, err)
	config.NamedQueries = map[string]string{
		"top_users": "SELECT * FROM users ORDER BY score DESC LIMIT 10",
	}
	config.Sessions = map[string]SessionRecord{
		"prod":  {Scheme: "postgres", Host: "db.example.com", Port: 5432, User: "alice", Database: "appdb"},
		"local": {Scheme: "sqlite", Path: "/tmp/dev.db"},
	}
	require.NoError(t, config.Save())

	reloaded, err := LoadConfig(fs, "/home/alice/.config/dbcrust/config.yaml")
	require.NoError(t, err)
	if diff := cmp.Diff(config, reloaded, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("config round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", []byte("named_queries: [broken"), 0o600))

	_, err := LoadConfig(fs, "/config.yaml")
	assert.Error(t, err)
}

func TestSortedNames(t *testing.T) {
	config := &Config{
		NamedQueries: map[string]string{"zeta": "SELECT 1", "alpha": "SELECT 2"},
		Sessions:     map[string]SessionRecord{"staging": {}, "prod": {}},
	}
	assert.Equal(t, []string{"alpha", "zeta"}, config.NamedQueryNames())
	assert.Equal(t, []string{"prod", "staging"}, config.SessionNames())
}

func TestSessionRecordURL(t *testing.T) {
	for _, tt := range []struct {
		desc   string
		record SessionRecord
		want   string
	}{
		{
			desc:   "full postgres record",
			record: SessionRecord{Scheme: "postgres", Host: "db.example.com", Port: 5432, User: "alice", Database: "appdb"},
			want:   "postgres://alice@db.example.com:5432/appdb",
		},
		{
			desc:   "mysql record without user",
			record: SessionRecord{Scheme: "mysql", Host: "localhost", Port: 3306, Database: "shop"},
			want:   "mysql://localhost:3306/shop",
		},
		{
			desc:   "sqlite record",
			record: SessionRecord{Scheme: "sqlite", Path: "/tmp/dev.db"},
			want:   "sqlite:///tmp/dev.db",
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.URL())
		})
	}
}
