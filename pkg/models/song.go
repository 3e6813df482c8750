package models

// UnknownArtist is reported when the artist cannot be inferred
const UnknownArtist = "Unknown Artist"

// Song represents one audio file in the music directory listing
type Song struct {
	File     string `json:"file"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Filename string `json:"filename"`
}

// Catalog is the response body of the song listing endpoint
type Catalog struct {
	Songs []Song `json:"songs"`
	Count int    `json:"count"`
}

// NewCatalog wraps songs, keeping Count in step with the slice and
// encoding an empty listing as [] rather than null.
func NewCatalog(songs []Song) Catalog {
	if songs == nil {
		songs = []Song{}
	}
	return Catalog{Songs: songs, Count: len(songs)}
}

// SongDetails carries the embedded tags and stream properties of a single song
type SongDetails struct {
	Filename    string `json:"filename"`
	File        string `json:"file"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Year        int    `json:"year,omitempty"`
	TrackNumber int    `json:"track,omitempty"`
	Format      string `json:"format"`
	Duration    int    `json:"durationSeconds"` // in seconds, 0 when unknown
	FileSize    int64  `json:"sizeBytes"`
	HasArtwork  bool   `json:"hasArtwork"`
	Tagged      bool   `json:"tagged"`
}
