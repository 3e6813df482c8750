package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tunedeck/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// fallbackMP3Bitrate is assumed when no mp3 frame can be decoded (192 kbps).
const fallbackMP3Bitrate = 192000

// ErrNoArtwork is returned by Artwork when the file has no embedded picture.
var ErrNoArtwork = errors.New("no embedded artwork")

// Probe reads embedded tags and stream properties from audio files.
// Nothing is cached; every call goes back to disk.
type Probe struct {
	logger *logrus.Logger
}

// NewProbe creates a new metadata probe
func NewProbe(logger *logrus.Logger) *Probe {
	return &Probe{logger: logger}
}

// Details fills in song details for the file at filePath. song carries the
// filename-derived listing entry, used wherever tags are missing. Unreadable
// tags or an unknown duration are not errors.
func (p *Probe) Details(filePath string, song models.Song) (models.SongDetails, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return models.SongDetails{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return models.SongDetails{}, err
	}

	details := models.SongDetails{
		Filename: song.Filename,
		File:     song.File,
		Title:    song.Title,
		Artist:   song.Artist,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), "."),
		FileSize: stat.Size(),
	}

	duration, err := p.calculateDuration(filePath)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Debug("Failed to calculate duration, setting to 0")
		duration = 0
	}
	details.Duration = duration

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Debug("No readable tags, using filename")
		return details, nil
	}

	details.Tagged = true
	if title := strings.TrimSpace(metadata.Title()); title != "" {
		details.Title = title
	}
	if artist := strings.TrimSpace(metadata.Artist()); artist != "" {
		details.Artist = artist
	}
	details.Album = strings.TrimSpace(metadata.Album())
	details.Genre = strings.TrimSpace(metadata.Genre())
	details.Year = metadata.Year()
	details.TrackNumber, _ = metadata.Track()
	details.HasArtwork = metadata.Picture() != nil

	p.logger.WithFields(logrus.Fields{
		"filePath":       filePath,
		"title":          details.Title,
		"artist":         details.Artist,
		"duration":       details.Duration,
		"hasArtwork":     details.HasArtwork,
		"processingTime": time.Since(startTime),
	}).Debug("Read song details")

	return details, nil
}

// Artwork returns the embedded picture of the file and its MIME type.
func (p *Probe) Artwork(filePath string) ([]byte, string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, "", ErrNoArtwork
	}
	picture := metadata.Picture()
	if picture == nil || len(picture.Data) == 0 {
		return nil, "", ErrNoArtwork
	}

	return picture.Data, ImageMimeType(picture.Data), nil
}

// ImageMimeType guesses the MIME type of image data from its magic bytes
func ImageMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}

	return "application/octet-stream"
}

// calculateDuration returns the duration of an audio file in whole seconds
func (p *Probe) calculateDuration(filePath string) (int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return durationMP3(filePath)
	case ".flac":
		return durationFLAC(filePath)
	case ".wav":
		return durationWAV(filePath)
	case ".m4a":
		return durationM4A(filePath)
	default:
		return 0, fmt.Errorf("duration not supported for %s", ext)
	}
}

// durationMP3 sums decoded frame durations, estimating from the file size
// only when not a single frame decodes.
func durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return estimateFromFileSize(f, fallbackMP3Bitrate)
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	if frames == 0 {
		return estimateFromFileSize(f, fallbackMP3Bitrate)
	}
	return int(total.Seconds() + 0.5), nil
}

// durationFLAC reads the STREAMINFO block
func durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return int(secs + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// durationWAV uses the fmt chunk for the frame size and the PCM data chunk
// size for the sample count.
func durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}

	pcmBytes := int64(0)
	if err := dec.FwdToPCM(); err == nil {
		pcmBytes = int64(dec.PCMSize)
	}
	if pcmBytes <= 0 {
		// No usable data chunk header; assume the canonical 44 byte header.
		st, err := f.Stat()
		if err != nil {
			return 0, err
		}
		pcmBytes = st.Size() - 44
		if pcmBytes < 0 {
			pcmBytes = 0
		}
	}

	sampleFrames := pcmBytes / bytesPerSampleFrame
	secs := float64(sampleFrames) / float64(dec.SampleRate)
	return int(secs + 0.5), nil
}

// durationM4A reads timescale and duration from the moov/mvhd atom.
func durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for {
		size, headerLen, atom, err := readAtomHeader(f)
		if err != nil {
			return 0, err
		}
		if atom != "moov" {
			if size == 0 {
				return 0, fmt.Errorf("moov atom not found")
			}
			if _, err := f.Seek(size-headerLen, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		limit := size - headerLen
		if size == 0 {
			limit = math.MaxInt64
		}
		for read := int64(0); read < limit; {
			subSize, subHeaderLen, subAtom, err := readAtomHeader(f)
			if err != nil {
				return 0, err
			}
			if subAtom == "mvhd" {
				return readMvhd(f)
			}
			if subSize == 0 {
				break
			}
			if _, err := f.Seek(subSize-subHeaderLen, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += subSize
		}
		return 0, fmt.Errorf("mvhd atom not found")
	}
}

// readAtomHeader reads an atom header. size covers the whole atom and is 0
// for an atom running to the end of the file; a size field of 1 means a
// 64-bit size follows the type.
func readAtomHeader(r io.Reader) (size, headerLen int64, atom string, err error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(r, head); err != nil {
		return 0, 0, "", err
	}
	size = int64(binary.BigEndian.Uint32(head[0:4]))
	atom = string(head[4:8])
	headerLen = 8

	if size == 1 {
		ext := make([]byte, 8)
		if _, err := io.ReadFull(r, ext); err != nil {
			return 0, 0, "", err
		}
		large := binary.BigEndian.Uint64(ext)
		if large > math.MaxInt64 {
			return 0, 0, "", fmt.Errorf("invalid %s atom size", atom)
		}
		size = int64(large)
		headerLen = 16
	}
	if size != 0 && size < headerLen {
		return 0, 0, "", fmt.Errorf("invalid %s atom size", atom)
	}
	return size, headerLen, atom, nil
}

func readMvhd(r io.ReadSeeker) (int, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(r, version); err != nil {
		return 0, err
	}

	var timescale uint32
	var units uint64
	if version[0] == 1 {
		// flags + 64-bit creation and modification times
		if _, err := r.Seek(3+8+8, io.SeekCurrent); err != nil {
			return 0, err
		}
		buf := make([]byte, 12)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[0:4])
		units = binary.BigEndian.Uint64(buf[4:12])
	} else {
		if _, err := r.Seek(3+4+4, io.SeekCurrent); err != nil {
			return 0, err
		}
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[0:4])
		units = uint64(binary.BigEndian.Uint32(buf[4:8]))
	}

	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}
	secs := float64(units) / float64(timescale)
	return int(secs + 0.5), nil
}

// estimateFromFileSize is the last resort for undecodable mp3 streams.
func estimateFromFileSize(f *os.File, bitrate int) (int, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}
