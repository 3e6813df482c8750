package server

import (
	"errors"
	"net/http"

	"tunedeck/internal/catalog"
	"tunedeck/internal/metadata"
	"tunedeck/pkg/models"
)

// handleGetSongs returns the song listing of the music directory. The
// directory is rescanned on every request.
func (ms *MusicServer) handleGetSongs(w http.ResponseWriter, r *http.Request) {
	songs := ms.catalog.Build()
	ms.respondJSON(w, http.StatusOK, models.NewCatalog(songs))
}

// handleGetSongDetails returns embedded tags and stream info for one song.
func (ms *MusicServer) handleGetSongDetails(w http.ResponseWriter, r *http.Request) {
	filePath, song, ok := ms.lookupSong(w, r)
	if !ok {
		return
	}

	details, err := ms.probe.Details(filePath, song)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error reading song", err)
		return
	}

	ms.respondJSON(w, http.StatusOK, details)
}

// handleGetSongArtwork serves the picture embedded in a song's tags.
func (ms *MusicServer) handleGetSongArtwork(w http.ResponseWriter, r *http.Request) {
	filePath, _, ok := ms.lookupSong(w, r)
	if !ok {
		return
	}

	data, contentType, err := ms.probe.Artwork(filePath)
	if errors.Is(err, metadata.ErrNoArtwork) {
		ms.respondWithError(w, r, http.StatusNotFound, "Artwork not found", nil)
		return
	}
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error reading artwork", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// lookupSong resolves the filename query parameter, writing the error
// response itself when it cannot.
func (ms *MusicServer) lookupSong(w http.ResponseWriter, r *http.Request) (string, models.Song, bool) {
	filename := r.URL.Query().Get("filename")
	if verr := ms.validateFilename(filename); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return "", models.Song{}, false
	}

	filePath, song, err := ms.catalog.Lookup(filename)
	switch {
	case err == nil:
		return filePath, song, true
	case errors.Is(err, catalog.ErrNotFound):
		ms.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
	case errors.Is(err, catalog.ErrInvalidName):
		ms.respondWithValidationError(w, r, []ValidationError{{
			Field:   "filename",
			Message: "Invalid filename",
			Code:    "INVALID_FILENAME",
		}})
	default:
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error looking up song", err)
	}
	return "", models.Song{}, false
}
