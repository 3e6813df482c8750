package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"tunedeck/internal/catalog"
	"tunedeck/internal/config"
	"tunedeck/internal/metadata"
	"tunedeck/internal/metrics"
	"tunedeck/internal/tunnel"
	"tunedeck/internal/watcher"

	"github.com/sirupsen/logrus"
)

// SongsPath is the catalog endpoint.
const SongsPath = "/api/songs"

// MusicServer serves the player's static files and the song listing
type MusicServer struct {
	config  *config.Config
	logger  *logrus.Logger
	catalog *catalog.Builder
	probe   *metadata.Probe
	watcher *watcher.Watcher
	tunnel  *tunnel.Service

	lastLibraryChange atomic.Pointer[time.Time]
}

// NewMusicServer creates a new music server instance. Everything it reads
// from disk is located through cfg; the process working directory is only
// involved through relative paths in cfg.
func NewMusicServer(cfg *config.Config, logger *logrus.Logger) *MusicServer {
	ms := &MusicServer{
		config:  cfg,
		logger:  logger,
		catalog: catalog.NewBuilder(cfg.Music.Dir, cfg.MusicURLPrefix(), cfg.Music.SupportedFormats, logger),
		probe:   metadata.NewProbe(logger),
	}

	if cfg.Music.WatchForChanges {
		ms.watcher = watcher.New(cfg.Music.Dir, ms.catalog.IsAudioFile, logger)
		ms.watcher.OnChange(ms.recordLibraryChange)
	}

	tun, err := tunnel.NewService(&cfg.Tunnel, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok tunnel not available")
	}
	ms.tunnel = tun

	return ms
}

// Handler returns the routed handler wrapped in the middleware chain.
func (ms *MusicServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(SongsPath, ms.handleGetSongs)
	mux.HandleFunc(SongsPath+"/details", ms.handleGetSongDetails)
	mux.HandleFunc(SongsPath+"/artwork", ms.handleGetSongArtwork)
	mux.HandleFunc("/api/health", ms.handleHealthCheck)
	if ms.config.Metrics.Enabled {
		mux.Handle(ms.config.Metrics.Path, metrics.Handler())
	}

	// Songs are listed as "<prefix>/<filename>", so the music directory is
	// mounted there even when it lives outside the static root.
	prefix := "/" + ms.config.MusicURLPrefix()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, staticHandler(ms.config.Music.Dir)))
	mux.Handle("/", staticHandler(ms.config.Server.RootDir))

	var handler http.Handler = mux
	handler = ms.methodMiddleware(handler)
	handler = ms.requestLoggingMiddleware(handler)
	handler = ms.requestIDMiddleware(handler)
	handler = ms.corsMiddleware(handler)
	handler = ms.panicRecoveryMiddleware(handler)
	return handler
}

// Listen opens the configured listen address.
func (ms *MusicServer) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", ms.config.GetAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", ms.config.GetAddress(), err)
	}
	return ln, nil
}

// Run listens on the configured address and serves until ctx is done.
func (ms *MusicServer) Run(ctx context.Context) error {
	ln, err := ms.Listen()
	if err != nil {
		return err
	}
	return ms.Serve(ctx, ln)
}

// Serve handles connections on ln until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (ms *MusicServer) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           ms.Handler(),
		ReadTimeout:       time.Duration(ms.config.Server.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(ms.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(ms.config.Server.IdleTimeout) * time.Second,
	}

	if ms.watcher != nil {
		if err := ms.watcher.Start(); err != nil {
			ms.logger.WithError(err).WithField("music_dir", ms.config.Music.Dir).Warn("Could not start file watcher")
		} else {
			defer ms.watcher.Stop()
		}
	}

	localAddress := "http://" + ln.Addr().String()
	ms.logStartup(localAddress)

	if ms.tunnel != nil {
		if err := ms.tunnel.Start(ctx, localAddress); err != nil {
			ms.logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer ms.tunnel.Stop()
			ms.logger.WithField("public_url", ms.tunnel.PublicURL()).Info("Music player reachable through tunnel")
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	ms.logger.Info("Shutting down music server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(ms.config.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		ms.logger.WithError(err).Warn("Graceful shutdown timed out, closing connections")
		server.Close()
	}
	<-serveErr

	ms.logger.Info("Music server shutdown complete")
	return nil
}

// recordLibraryChange remembers when the watcher last saw the music
// directory change, for the health report.
func (ms *MusicServer) recordLibraryChange(watcher.Change) {
	now := time.Now()
	ms.lastLibraryChange.Store(&now)
}

func (ms *MusicServer) logStartup(localAddress string) {
	songs := ms.catalog.Build()

	ms.logger.WithFields(logrus.Fields{
		"address":   localAddress,
		"root_dir":  ms.config.Server.RootDir,
		"music_dir": ms.config.Music.Dir,
		"songs":     len(songs),
	}).Info("Music player server running")

	if len(songs) == 0 {
		ms.logger.WithField("supported_formats", ms.config.Music.SupportedFormats).Warn("No supported audio files found in music directory")
	}
}
