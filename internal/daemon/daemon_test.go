package daemon

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aircraft_logger/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DBPath:      filepath.Join(t.TempDir(), "daemon.db"),
		ListenAddr:  "127.0.0.1:0",
		MaxPictures: 5,
		Shell: config.ShellConfig{
			Version:         "test-cache-v1",
			URLs:            config.LocalShellURLs,
			RefreshInterval: time.Hour,
		},
		Log: config.LogConfig{Level: "info", Format: "text"},
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestDaemon_StartServeStop(t *testing.T) {
	d, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, d.Start())

	base := "http://" + d.Addr()

	resp, err := http.Get(base + "/api/records")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	post, err := http.Post(base+"/api/records", "application/json", strings.NewReader(
		`{"aircraftModel":"Global","acNumber":"N101","monumentNumber":"M-5","startDate":"2024-01-01","finishDate":"2024-01-10"}`))
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusCreated, post.StatusCode)

	n, err := d.database.Records().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// the refresh task installs the shell from the running server
	assert.Eventually(t, func() bool {
		_, ok, err := d.database.ShellCache().Match(context.Background(), "test-cache-v1", "/static/app.css")
		return err == nil && ok
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, d.Stop())
	// a second Stop is a no-op
	assert.NoError(t, d.Stop())

	_, err = http.Get(base + "/api/records")
	assert.Error(t, err)
}

func TestDaemon_StartBadAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.ListenAddr = "127.0.0.1:99999"

	d, err := New(cfg)
	require.NoError(t, err)
	assert.Error(t, d.Start())
	assert.NoError(t, d.Stop())
}
