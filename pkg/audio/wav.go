package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	wavHeaderSize  = 44
	wavFormatPCM   = 1
	wavBitsPerSamp = 16
)

// ErrInvalidWAV is returned when data is not a 16-bit PCM RIFF/WAVE stream.
var ErrInvalidWAV = errors.New("audio: invalid wav")

// wavHeader is the canonical 44-byte header of a single-chunk PCM WAV file.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV wraps mono int16 samples in a canonical PCM WAV container.
// It returns [ErrEmptyAudio] for a zero-length buffer so callers never write
// silent zero-length files.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: encode wav: sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	h := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wavFormatPCM,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: wavBitsPerSamp,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+int(dataSize)))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("audio: encode wav header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("audio: encode wav samples: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteWAVFile encodes samples and writes them to path. Nothing is written
// when samples is empty.
func WriteWAVFile(path string, samples []int16, sampleRate int) error {
	data, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("audio: write %s: %w", path, err)
	}
	return nil
}

// WAVInfo describes the format of a decoded WAV stream.
type WAVInfo struct {
	SampleRate int
	Channels   int
	NumFrames  int
	Duration   time.Duration
}

// DecodeWAV parses a 16-bit PCM WAV stream and returns its samples as mono.
// Stereo input is down-mixed. Chunks other than "fmt " and "data" (LIST,
// fact, ...) are skipped. A data chunk whose declared size runs past the end
// of the buffer, as written by streaming encoders, is truncated to what is
// present.
func DecodeWAV(data []byte) ([]int16, WAVInfo, error) {
	info, pcm, err := parseWAV(data)
	if err != nil {
		return nil, WAVInfo{}, err
	}
	samples := BytesToSamples(pcm)
	if info.Channels == 2 {
		samples = StereoToMono(samples)
	}
	return samples, info, nil
}

// WAVDuration returns the playback duration of a WAV stream without decoding
// its samples.
func WAVDuration(data []byte) (time.Duration, error) {
	info, _, err := parseWAV(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

func parseWAV(data []byte) (WAVInfo, []byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return WAVInfo{}, nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	r := bytes.NewReader(data[12:])
	var (
		info    WAVInfo
		haveFmt bool
	)
	for {
		var id [4]byte
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			if errors.Is(err, io.EOF) {
				return WAVInfo{}, nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
			}
			return WAVInfo{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return WAVInfo{}, nil, fmt.Errorf("%w: truncated chunk header", ErrInvalidWAV)
		}

		switch string(id[:]) {
		case "fmt ":
			var f struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if size < 16 {
				return WAVInfo{}, nil, fmt.Errorf("%w: fmt chunk too short", ErrInvalidWAV)
			}
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return WAVInfo{}, nil, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			if f.AudioFormat != wavFormatPCM || f.BitsPerSample != wavBitsPerSamp {
				return WAVInfo{}, nil, fmt.Errorf("%w: unsupported format %d/%d-bit", ErrInvalidWAV, f.AudioFormat, f.BitsPerSample)
			}
			if f.NumChannels != 1 && f.NumChannels != 2 {
				return WAVInfo{}, nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidWAV, f.NumChannels)
			}
			if f.SampleRate == 0 {
				return WAVInfo{}, nil, fmt.Errorf("%w: zero sample rate", ErrInvalidWAV)
			}
			info.SampleRate = int(f.SampleRate)
			info.Channels = int(f.NumChannels)
			haveFmt = true
			if _, err := r.Seek(int64(size-16)+int64(size%2), io.SeekCurrent); err != nil {
				return WAVInfo{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}

		case "data":
			if !haveFmt {
				return WAVInfo{}, nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			start := len(data) - r.Len()
			end := start + int(size)
			if size == 0xFFFFFFFF || end > len(data) || end < start {
				end = len(data)
			}
			pcm := data[start:end]
			info.NumFrames = len(pcm) / (2 * info.Channels)
			info.Duration = time.Duration(info.NumFrames) * time.Second / time.Duration(info.SampleRate)
			return info, pcm, nil

		default:
			if _, err := r.Seek(int64(size)+int64(size%2), io.SeekCurrent); err != nil {
				return WAVInfo{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}
		}
	}
}
