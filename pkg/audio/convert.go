package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Convert returns pcm converted to target. Channels are mixed down first so
// that resampling only runs over a single channel when the target is mono.
// A buffer that already matches target is returned unchanged.
func Convert(pcm PCM, target Format) PCM {
	if len(pcm.Data)%2 != 0 {
		slog.Warn("audio: odd byte count in PCM data, dropping trailing byte",
			"bytes", len(pcm.Data),
			"format", pcm.Format.String(),
		)
		pcm.Data = pcm.Data[:len(pcm.Data)-1]
	}
	if pcm.Format == target {
		return pcm
	}

	data := pcm.Data
	channels := pcm.Format.Channels
	if channels > 1 && target.Channels == 1 {
		data = Downmix(data, channels)
		channels = 1
	}
	if pcm.Format.SampleRate != target.SampleRate && channels == 1 {
		data = ResampleMono16(data, pcm.Format.SampleRate, target.SampleRate)
	}
	if channels == 1 && target.Channels == 2 {
		data = MonoToStereo(data)
		channels = 2
	}
	return PCM{Data: data, Format: Format{SampleRate: target.SampleRate, Channels: channels}}
}

// String renders the format as e.g. "48000Hz stereo".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// Downmix averages every interleaved frame of channels samples into a single
// mono sample. Trailing partial frames are dropped.
func Downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / (2 * channels)
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(pcm[idx:])))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clamp16(sum/int32(channels))))
	}
	return out
}

// MonoToStereo duplicates each int16 mono sample into a stereo L+R pair.
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		j := i * 2
		out[j], out[j+1] = pcm[i], pcm[i+1]
		out[j+2], out[j+3] = pcm[i], pcm[i+1]
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using linear
// interpolation. Equal or invalid rates return the input unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstSamples {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		s0 := int16(binary.LittleEndian.Uint16(pcm[idx*2:]))
		s1 := s0
		if idx+1 < srcSamples {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(idx+1)*2:]))
		}
		v := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// SamplesToBytes packs int16 samples as little-endian PCM.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ToFloat32 converts 16-bit PCM to float32 samples normalised to [-1, 1].
func ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return samples
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
