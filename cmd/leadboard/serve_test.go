package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surstitch/leadboard/internal/config"
)

func TestServe_ShutsDownOnCancel(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(leadsCSV), 0o600))

	cfg := config.Default()
	cfg.Dataset.Path = path
	cfg.Dataset.Watch = true
	cfg.Server.HTTPPort = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_RejectsBadClientCert(t *testing.T) {
	resetFlags()
	cfg := config.Default()
	cfg.Dataset.URL = "https://exports.invalid/leads.csv"
	cfg.Dataset.Auth.Mode = "mtls"
	cfg.Dataset.Auth.CertFile = filepath.Join(t.TempDir(), "missing.crt")
	cfg.Dataset.Auth.KeyFile = filepath.Join(t.TempDir(), "missing.key")

	err := serve(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client cert")
}
