package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunedeck/internal/config"
	"tunedeck/internal/logging"
)

// createTestMusicServer builds a server over a temporary root directory
// containing a music folder.
func createTestMusicServer(t *testing.T) (*MusicServer, string) {
	t.Helper()

	root := t.TempDir()
	musicDir := filepath.Join(root, "music")
	if err := os.MkdirAll(musicDir, 0755); err != nil {
		t.Fatalf("Failed to create music directory: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Server.RootDir = root
	cfg.Music.Dir = musicDir
	cfg.Logging.RequestLogging = false

	return NewMusicServer(cfg, logging.Discard()), root
}

func TestValidateFilename(t *testing.T) {
	ms, _ := createTestMusicServer(t)

	tests := []struct {
		name     string
		filename string
		wantCode string
	}{
		{"valid", "Blur - Song 2.mp3", ""},
		{"valid uppercase extension", "track.FLAC", ""},
		{"empty", "", "MISSING_FILENAME"},
		{"too long", strings.Repeat("a", 256) + ".mp3", "FILENAME_TOO_LONG"},
		{"parent directory", "..", "PATH_TRAVERSAL_DENIED"},
		{"traversal", "../etc/passwd.mp3", "PATH_TRAVERSAL_DENIED"},
		{"backslash traversal", `..\secret.mp3`, "PATH_TRAVERSAL_DENIED"},
		{"subdirectory", "album/track.mp3", "PATH_TRAVERSAL_DENIED"},
		{"null byte", "track\x00.mp3", "PATH_TRAVERSAL_DENIED"},
		{"unsupported type", "cover.jpg", "UNSUPPORTED_FILE_TYPE"},
		{"hidden without extension", ".mp3", "UNSUPPORTED_FILE_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ms.validateFilename(tt.filename)
			if tt.wantCode == "" {
				if verr != nil {
					t.Errorf("validateFilename(%q) unexpected error: %+v", tt.filename, verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("validateFilename(%q) expected %s, got none", tt.filename, tt.wantCode)
			}
			if verr.Code != tt.wantCode {
				t.Errorf("validateFilename(%q) code = %s, want %s", tt.filename, verr.Code, tt.wantCode)
			}
			if verr.Field != "filename" {
				t.Errorf("validateFilename(%q) field = %s, want filename", tt.filename, verr.Field)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0B"},
		{512, "< 1KB"},
		{2048, "2KB"},
		{5 * 1024 * 1024, "5MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
