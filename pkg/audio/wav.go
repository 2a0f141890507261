package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned by [DecodeWAV] when the payload lacks a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE payload")

const wavHeaderSize = 44

// EncodeWAV wraps PCM in a canonical 44-byte RIFF/WAV header.
func EncodeWAV(pcm PCM) []byte {
	channels := pcm.Format.Channels
	if channels <= 0 {
		channels = 1
	}
	byteRate := pcm.Format.SampleRate * channels * 2
	blockAlign := channels * 2
	dataSize := len(pcm.Data)

	buf := make([]byte, wavHeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(pcm.Format.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm.Data)
	return buf
}

// DecodeWAV parses a RIFF/WAVE file holding 16-bit integer PCM. Chunks other
// than "fmt " and "data" are skipped. A data chunk whose declared size runs
// past the end of the payload is truncated to what is present, which is what
// streaming recorders produce when they never patch the header.
func DecodeWAV(data []byte) (PCM, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return PCM{}, ErrNotWAV
	}

	var (
		format    Format
		gotFormat bool
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		end := body + size
		if end > len(data) || size < 0 {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return PCM{}, errors.New("audio: wav fmt chunk too short")
			}
			tag := binary.LittleEndian.Uint16(data[body:])
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if tag != 1 && tag != 0xFFFE {
				return PCM{}, fmt.Errorf("audio: unsupported wav format tag %d", tag)
			}
			if bits != 16 {
				return PCM{}, fmt.Errorf("audio: unsupported wav bit depth %d", bits)
			}
			format = Format{
				Channels:   int(binary.LittleEndian.Uint16(data[body+2:])),
				SampleRate: int(binary.LittleEndian.Uint32(data[body+4:])),
			}
			gotFormat = true
		case "data":
			if !gotFormat {
				return PCM{}, errors.New("audio: wav data chunk before fmt chunk")
			}
			pcm := data[body:end]
			if len(pcm)%2 != 0 {
				pcm = pcm[:len(pcm)-1]
			}
			return PCM{Data: pcm, Format: format}, nil
		}

		off = end
		if size%2 == 1 {
			off++
		}
	}
	if !gotFormat {
		return PCM{}, errors.New("audio: wav fmt chunk missing")
	}
	return PCM{Format: format}, nil
}
