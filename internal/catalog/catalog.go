// Package catalog builds the song listing served at /api/songs by
// scanning the music directory and inferring title and artist from
// each filename.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"tunedeck/internal/metrics"
	"tunedeck/pkg/models"

	"github.com/sirupsen/logrus"
)

// ArtistSeparator splits "Artist - Title" filenames.
const ArtistSeparator = " - "

// ErrNotFound is returned by Lookup when no listable song has the given name.
var ErrNotFound = errors.New("song not found")

// ErrInvalidName is returned by Lookup for names that are not a bare file name.
var ErrInvalidName = errors.New("invalid song filename")

// Builder scans one directory, non-recursively, for audio files.
// It holds no state between scans and is safe for concurrent use.
type Builder struct {
	dir       string
	urlPrefix string
	formats   map[string]bool
	logger    *logrus.Logger
}

// NewBuilder creates a builder for dir. urlPrefix is the path segment the
// directory is served under; formats are extensions like ".mp3".
func NewBuilder(dir, urlPrefix string, formats []string, logger *logrus.Logger) *Builder {
	set := make(map[string]bool, len(formats))
	for _, f := range formats {
		set[strings.ToLower(f)] = true
	}
	return &Builder{
		dir:       dir,
		urlPrefix: strings.Trim(urlPrefix, "/"),
		formats:   set,
		logger:    logger,
	}
}

// Dir returns the scanned directory.
func (b *Builder) Dir() string {
	return b.dir
}

// Build returns the sorted song listing. It never fails: a missing
// directory yields no songs, other filesystem errors are logged and
// whatever could be enumerated is returned.
func (b *Builder) Build() []models.Song {
	songs, err := b.Scan()
	if err != nil {
		b.logger.WithError(err).WithField("music_dir", b.dir).Warn("Music directory scan incomplete")
	}
	return songs
}

// Scan enumerates the directory and returns the songs found along with
// any error other than the directory not existing. Songs are returned
// even when err is non-nil.
func (b *Builder) Scan() ([]models.Song, error) {
	start := time.Now()
	songs, err := b.scan()
	metrics.ObserveCatalogScan(len(songs), time.Since(start), err != nil)

	b.logger.WithFields(logrus.Fields{
		"music_dir": b.dir,
		"songs":     len(songs),
		"took":      time.Since(start),
	}).Debug("Scanned music directory")

	return songs, err
}

func (b *Builder) scan() ([]models.Song, error) {
	songs := []models.Song{}

	entries, err := os.ReadDir(b.dir)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return songs, nil
	}
	// os.ReadDir hands back what it read before failing.
	var scanErr error
	if err != nil {
		scanErr = fmt.Errorf("failed to read music directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !b.IsAudioFile(name) {
			continue
		}
		if !b.isRegularFile(entry) {
			continue
		}
		songs = append(songs, b.songFor(name))
	}

	slices.SortFunc(songs, func(x, y models.Song) int {
		return strings.Compare(x.Filename, y.Filename)
	})

	return songs, scanErr
}

// isRegularFile follows symlinks so a link to an audio file is listed
// like the file itself.
func (b *Builder) isRegularFile(entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(b.dir, entry.Name()))
	if err != nil {
		b.logger.WithError(err).WithField("filename", entry.Name()).Debug("Skipping unreadable symlink")
		return false
	}
	return info.Mode().IsRegular()
}

func (b *Builder) songFor(filename string) models.Song {
	base, _ := SplitExt(filename)
	title, artist := InferTitleArtist(base)
	return models.Song{
		File:     FileURL(b.urlPrefix, filename),
		Title:    title,
		Artist:   artist,
		Filename: filename,
	}
}

// IsAudioFile reports whether name carries one of the recognized extensions.
func (b *Builder) IsAudioFile(name string) bool {
	_, ext := SplitExt(name)
	return ext != "" && b.formats[strings.ToLower(ext)]
}

// Lookup resolves a song filename to its path on disk, applying the same
// rules as the listing: a bare name with a recognized extension naming a
// regular file directly inside the directory.
func (b *Builder) Lookup(filename string) (string, models.Song, error) {
	if !ValidFilename(filename) {
		return "", models.Song{}, ErrInvalidName
	}
	if !b.IsAudioFile(filename) {
		return "", models.Song{}, ErrInvalidName
	}

	fullPath := filepath.Join(b.dir, filename)
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", models.Song{}, ErrNotFound
		}
		return "", models.Song{}, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return "", models.Song{}, ErrNotFound
	}

	return fullPath, b.songFor(filename), nil
}

// ValidFilename reports whether name is a plain file name that cannot
// escape the directory it is joined to.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return true
}

// SplitExt splits name into base and extension at the last dot. Leading
// dots do not start an extension, so ".mp3" has none.
func SplitExt(name string) (base, ext string) {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return name, ""
	}
	if strings.Trim(name[:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// InferTitleArtist reads "Artist - Title" from a base filename, splitting on
// the first separator only. Without a separator the whole name is the title
// and the artist is unknown.
func InferTitleArtist(base string) (title, artist string) {
	left, right, found := strings.Cut(base, ArtistSeparator)
	if !found {
		return base, models.UnknownArtist
	}
	return strings.TrimSpace(right), strings.TrimSpace(left)
}

// FileURL builds the client-facing path of a song; it always uses forward
// slashes regardless of the host OS.
func FileURL(urlPrefix, filename string) string {
	if urlPrefix == "" {
		return filename
	}
	return urlPrefix + "/" + filename
}
