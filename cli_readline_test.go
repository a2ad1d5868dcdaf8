package main

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyaosorg/go-readline-ny/simplehistory"
)

func TestPersistentHistoryRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	history, err := newPersistentHistoryWithFS("/history", simplehistory.New(), fs)
	require.NoError(t, err)

	history.Add("SELECT 1;")
	history.Add("SELECT id\nFROM users;")

	reloaded, err := newPersistentHistoryWithFS("/history", simplehistory.New(), fs)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())
	assert.Equal(t, "SELECT 1;", reloaded.At(0))
	assert.Equal(t, "SELECT id\nFROM users;", reloaded.At(1), "multiline entries survive persistence")
}

func TestPersistentHistoryRejectsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/history", []byte("not a quoted line\n"), 0o600))

	_, err := newPersistentHistoryWithFS("/history", simplehistory.New(), fs)
	assert.Error(t, err)
}

func TestGeneratePS2Prompt(t *testing.T) {
	assert.Equal(t, "appdb-> ", generatePS2Prompt("appdb=> ", "appdb-> "))
	assert.Equal(t, "    db-> ", generatePS2Prompt("longdb=> ", "db-> "))
}

func TestCommonPrefix(t *testing.T) {
	for _, tt := range []struct {
		desc   string
		values []string
		want   string
	}{
		{"shared prefix", []string{"users", "user_roles", "user_events"}, "user"},
		{"single value", []string{"orders"}, "orders"},
		{"no shared prefix", []string{"users", "orders"}, ""},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			suggestions := make([]Suggestion, len(tt.values))
			for i, v := range tt.values {
				suggestions[i] = Suggestion{Value: v}
			}
			assert.Equal(t, tt.want, commonPrefix(suggestions))
		})
	}
}

func TestValidateInteractiveInput(t *testing.T) {
	_, err := validateInteractiveInput(nil)
	assert.Error(t, err)

	stmt, err := validateInteractiveInput([]inputStatement{{statement: "SELECT 1", delim: ";"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", stmt.statement)

	_, err = validateInteractiveInput([]inputStatement{
		{statement: "SELECT 1", delim: ";"},
		{statement: "SELECT 2", delim: ";"},
	})
	assert.ErrorContains(t, err, "single statements")
}
