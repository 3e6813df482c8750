package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"tunedeck/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeAndShutdown(t *testing.T) {
	ms, root := createTestMusicServer(t)
	writeTestFile(t, filepath.Join(root, "music"), "Blur - Song 2.mp3", []byte("x"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ms.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + SongsPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var c models.Catalog
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Equal(t, 1, c.Count)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get("http://" + ln.Addr().String() + SongsPath)
	assert.Error(t, err)
}

func TestServeWithWatcher(t *testing.T) {
	ms, root := createTestMusicServer(t)
	ms.config.Music.WatchForChanges = true
	ms = NewMusicServer(ms.config, ms.logger)
	require.NotNil(t, ms.watcher)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ms.Serve(ctx, ln)
	}()

	healthURL := "http://" + ln.Addr().String() + "/api/health"
	health := fetchHealth(t, healthURL)
	assert.Nil(t, health.LastLibraryChange)
	assert.Empty(t, health.PublicURL)

	writeTestFile(t, filepath.Join(root, "music"), "Blur - Song 2.mp3", []byte("x"))
	assert.Eventually(t, func() bool {
		return ms.lastLibraryChange.Load() != nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.NotNil(t, fetchHealth(t, healthURL).LastLibraryChange)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAddressInUse(t *testing.T) {
	ms, _ := createTestMusicServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ms.config.Server.Host = "127.0.0.1"
	ms.config.Server.Port = portOf(t, ln.Addr())

	err = ms.Run(context.Background())
	assert.Error(t, err)
}

func portOf(t *testing.T, addr net.Addr) string {
	t.Helper()
	_, port, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	return port
}

func fetchHealth(t *testing.T, url string) HealthStatus {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var health HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	return health
}
