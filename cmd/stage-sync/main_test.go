package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sternrassler/stage-sync/internal/testutil"
	"github.com/Sternrassler/stage-sync/pkg/client"
	"github.com/Sternrassler/stage-sync/pkg/stages"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config file so tests never pick up one from $HOME.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(viper.New())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func newStageMock(t *testing.T) *testutil.MockAPI {
	t.Helper()
	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)

	mock.SetQueryPages("db1", []string{"rec1"})
	mock.SetStage("rec1", 7, "Rallye", "gravel", "night")
	return mock
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand(viper.New())
	assert.Equal(t, "stage-sync", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "sync")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "version")

	for _, flag := range []string{"config", "token", "base-url", "concurrency", "page-size", "timeout", "log-level", "log-pretty"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "Flag %s should exist", flag)
	}
}

func TestSyncCommand_Flags(t *testing.T) {
	cmd := newSyncCommand(viper.New())
	assert.Equal(t, "sync COLLECTION_ID", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	for _, flag := range []string{"output", "redis", "ttl"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "Flag %s should exist", flag)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := newServeCommand(viper.New())
	assert.Equal(t, "serve COLLECTION_ID", cmd.Use)

	for _, flag := range []string{"redis", "interval", "ttl", "addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "Flag %s should exist", flag)
	}
}

func TestSyncCommand_JSON(t *testing.T) {
	mock := newStageMock(t)

	out, err := execute(t, "sync", "db1",
		"--config", writeConfig(t, ""),
		"--token", "tok",
		"--base-url", mock.URL(),
		"--log-level", "disabled",
		"--output", "json")
	require.NoError(t, err)

	var list []stages.Stage
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, []stages.Stage{{ID: 7, Title: "Rallye", Tags: []string{"gravel", "night"}}}, list)
	assert.Equal(t, "Bearer tok", mock.GetLastRequestHeader().Get("Authorization"))
}

func TestSyncCommand_Table(t *testing.T) {
	mock := newStageMock(t)

	out, err := execute(t, "sync", "db1",
		"--config", writeConfig(t, ""),
		"--token", "tok",
		"--base-url", mock.URL(),
		"--log-level", "disabled")
	require.NoError(t, err)

	assert.Contains(t, out, "Rallye")
	assert.Contains(t, out, "gravel, night")
}

func TestSyncCommand_ConfigFile(t *testing.T) {
	mock := newStageMock(t)
	cfg := writeConfig(t, "token: tok\nbase-url: "+mock.URL()+"\nlog-level: disabled\n")

	out, err := execute(t, "sync", "db1", "--config", cfg, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Rallye"`)
}

func TestSyncCommand_Environment(t *testing.T) {
	mock := newStageMock(t)
	t.Setenv("STAGESYNC_TOKEN", "env-tok")
	t.Setenv("STAGESYNC_BASE_URL", mock.URL())
	t.Setenv("STAGESYNC_LOG_LEVEL", "disabled")

	_, err := execute(t, "sync", "db1", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "Bearer env-tok", mock.GetLastRequestHeader().Get("Authorization"))
}

func TestSyncCommand_CustomFieldIDs(t *testing.T) {
	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)
	mock.SetQueryPages("db1", []string{"rec1"})
	mock.SetNumber("rec1", "Number", 4)
	mock.SetTitle("rec1", "Stage", "Sweden")
	mock.SetTags("rec1", "Surface", "snow")

	out, err := execute(t, "sync", "db1",
		"--config", writeConfig(t, ""),
		"--token", "tok",
		"--base-url", mock.URL(),
		"--log-level", "disabled",
		"--field-id", "Number",
		"--field-title", "Stage",
		"--field-tags", "Surface",
		"-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Sweden"`)
}

func TestSyncCommand_RemoteError(t *testing.T) {
	mock := newStageMock(t)
	mock.SetResponse(testutil.PropertyPath("rec1", "Tags"), testutil.NewErrorResponse(http.StatusUnauthorized, "unauthorized"))

	out, err := execute(t, "sync", "db1",
		"--config", writeConfig(t, ""),
		"--token", "tok",
		"--base-url", mock.URL(),
		"--log-level", "disabled",
		"-o", "json")
	require.Error(t, err)
	assert.Empty(t, out)

	var apiErr *client.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, client.KindRemote, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Body)
}

func TestSyncCommand_MissingToken(t *testing.T) {
	mock := newStageMock(t)

	notTerminal, err := os.Open(writeConfig(t, ""))
	require.NoError(t, err)
	defer notTerminal.Close()
	stdin = notTerminal
	t.Cleanup(func() { stdin = os.Stdin })

	_, err = execute(t, "sync", "db1",
		"--config", writeConfig(t, ""),
		"--base-url", mock.URL(),
		"--log-level", "disabled")
	require.ErrorIs(t, err, errNoToken)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestSyncCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "unsupported output",
			args: []string{"sync", "db1", "--token", "tok", "-o", "xml"},
		},
		{
			name: "missing collection",
			args: []string{"sync", "--token", "tok"},
		},
		{
			name: "unknown log level",
			args: []string{"sync", "db1", "--token", "tok", "--log-level", "loud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newStageMock(t)
			args := append(tt.args, "--config", writeConfig(t, ""), "--base-url", mock.URL())

			_, err := execute(t, args...)
			assert.Error(t, err)
			assert.Equal(t, 0, mock.GetRequestCount())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--config", writeConfig(t, ""), "--log-level", "disabled")
	require.NoError(t, err)
	assert.Contains(t, out, version)
	assert.Contains(t, out, commit)
}
