// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/passport/internal/config"
	"github.com/holomush/passport/pkg/errutil"
)

func TestConfigSchemaCommand(t *testing.T) {
	isolate(t)

	// Runs without a database URL: config commands skip loading.
	out, err := execute(t, nil, "", "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestConfigValidateCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("store:\n  sessions: redis\n"), 0o600))
	out, err := execute(t, nil, "", "config", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, good+": valid")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store:\n  sessions: cassandra\n"), 0o600))
	_, err = execute(t, nil, "", "config", "validate", bad)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")

	_, err = execute(t, nil, "", "config", "validate", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
}
