package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateListTable(t *testing.T) {
	out, err := execute(t, "migrate", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "001")
	assert.Contains(t, out, "init")
	assert.Contains(t, out, "pending")
}

func TestMigrateListJSON(t *testing.T) {
	out, err := execute(t, "migrate", "list", "--json")
	require.NoError(t, err)

	var statuses []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.NotEmpty(t, statuses)
	assert.Equal(t, "001", statuses[0]["version"])
	assert.NotContains(t, statuses[0], "applied_at")
}

func TestMigrateUpReportsConnectionFailure(t *testing.T) {
	opts := &options{connect: func(ctx context.Context) (*sqlx.DB, error) {
		return nil, errors.New("connection refused")
	}}
	cmd := newMigrateCmd(opts)
	cmd.SetArgs([]string{"up"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
