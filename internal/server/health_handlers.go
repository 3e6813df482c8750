package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// HealthStatus represents operational status for the /api/health endpoint.
type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	MusicDir       string    `json:"musicDir"`
	MusicDirStatus string    `json:"musicDirStatus"`
	SongCount      int       `json:"songCount"`
	Error          string    `json:"error,omitempty"`

	PublicURL         string     `json:"publicUrl,omitempty"`
	LastLibraryChange *time.Time `json:"lastLibraryChange,omitempty"`
}

// handleHealthCheck reports whether the music directory can be listed.
// A missing directory is healthy; it simply holds no songs.
func (ms *MusicServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:         "healthy",
		Timestamp:      time.Now(),
		MusicDir:       ms.catalog.Dir(),
		MusicDirStatus: "ok",
		PublicURL:      ms.tunnel.PublicURL(),
	}
	if changed := ms.lastLibraryChange.Load(); changed != nil {
		health.LastLibraryChange = changed
	}

	if err := ms.checkMusicDir(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			health.MusicDirStatus = "missing"
		} else {
			health.Status = "degraded"
			health.MusicDirStatus = "error"
			health.Error = err.Error()
		}
		ms.respondJSON(w, http.StatusOK, health)
		return
	}

	songs, err := ms.catalog.Scan()
	health.SongCount = len(songs)
	if err != nil {
		health.Status = "degraded"
		health.MusicDirStatus = "error"
		health.Error = err.Error()
	}

	ms.respondJSON(w, http.StatusOK, health)
}

// checkMusicDir validates the music directory exists and is a directory.
func (ms *MusicServer) checkMusicDir() error {
	info, err := os.Stat(ms.catalog.Dir())
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("music path is not a directory")
	}
	return nil
}
