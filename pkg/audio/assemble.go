package audio

import (
	"bytes"
	"mime"
	"strconv"
)

// Assemble joins the fragments of one recording into a single uploadable
// [Clip]. Container formats (WebM, WAV) are concatenated as-is since the
// recorder emits one continuous stream. Raw "audio/L16" fragments are wrapped
// in a WAV header so the server can tell the sample format.
//
// Assembling zero fragments yields an empty clip that still carries the
// content type; the server rejects it.
func Assemble(contentType string, fragments [][]byte) Clip {
	var buf bytes.Buffer
	for _, f := range fragments {
		buf.Write(f)
	}
	if MediaType(contentType) != ContentTypeL16 {
		return Clip{Data: buf.Bytes(), ContentType: contentType}
	}
	pcm := PCM{Data: buf.Bytes(), Format: L16Format(contentType)}
	if len(pcm.Data) == 0 {
		return Clip{ContentType: ContentTypeWAV}
	}
	return Clip{Data: EncodeWAV(BigEndianToLittle(pcm)), ContentType: ContentTypeWAV}
}

// L16Format reads the rate and channels parameters of an "audio/L16" content
// type. Missing parameters default to 16 kHz mono.
func L16Format(contentType string) Format {
	f := STTFormat
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return f
	}
	if v, err := strconv.Atoi(params["rate"]); err == nil && v > 0 {
		f.SampleRate = v
	}
	if v, err := strconv.Atoi(params["channels"]); err == nil && v > 0 {
		f.Channels = v
	}
	return f
}

// L16ContentType renders the content type for raw network-order PCM in f.
func L16ContentType(f Format) string {
	return mime.FormatMediaType(ContentTypeL16, map[string]string{
		"rate":     strconv.Itoa(f.SampleRate),
		"channels": strconv.Itoa(f.Channels),
	})
}

// BigEndianToLittle byte-swaps network-order L16 samples into the
// little-endian layout used everywhere else in this package.
func BigEndianToLittle(pcm PCM) PCM {
	out := make([]byte, len(pcm.Data)&^1)
	for i := 0; i+1 < len(pcm.Data); i += 2 {
		out[i], out[i+1] = pcm.Data[i+1], pcm.Data[i]
	}
	return PCM{Data: out, Format: pcm.Format}
}

// LittleEndianToBig is the inverse of [BigEndianToLittle].
func LittleEndianToBig(data []byte) []byte {
	return BigEndianToLittle(PCM{Data: data}).Data
}
