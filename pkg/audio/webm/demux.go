// Package webm extracts and decodes the Opus audio track of a WebM recording,
// the format browsers' MediaRecorder produces for microphone capture.
//
// Only what MediaRecorder emits is supported: a single Segment with a Tracks
// element and Clusters of SimpleBlocks or BlockGroups. Segments and Clusters
// of unknown size are handled because the parser walks the element stream
// flat instead of honouring master element boundaries.
package webm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Element IDs used by the demuxer, with their length-marker bits kept.
const (
	idEBML         = 0x1A45DFA3
	idSegment      = 0x18538067
	idCluster      = 0x1F43B675
	idTracks       = 0x1654AE6B
	idTrackEntry   = 0xAE
	idTrackNumber  = 0xD7
	idTrackType    = 0x83
	idCodecID      = 0x86
	idCodecPrivate = 0x63A2
	idAudio        = 0xE1
	idSampleRate   = 0xB5
	idChannels     = 0x9F
	idBlockGroup   = 0xA0
	idBlock        = 0xA1
	idSimpleBlock  = 0xA3
	idTimecode     = 0xE7
)

const trackTypeAudio = 2

// ErrNotWebM is returned when the payload does not start with an EBML header.
var ErrNotWebM = errors.New("webm: missing EBML header")

// ErrNoAudioTrack is returned when no Opus audio track is declared.
var ErrNoAudioTrack = errors.New("webm: no opus audio track")

// Track describes one TrackEntry.
type Track struct {
	Number     uint64
	Type       uint64
	CodecID    string
	SampleRate float64
	Channels   int
	// CodecPrivate holds the OpusHead for Opus tracks.
	CodecPrivate []byte
}

// Packet is one encoded frame of the selected track.
type Packet struct {
	// Timecode is the absolute timecode in Segment timescale units
	// (milliseconds for MediaRecorder output).
	Timecode int64
	Data     []byte
}

// Stream is the demuxed Opus track of a recording.
type Stream struct {
	Track   Track
	Packets []Packet
}

// masters are entered rather than skipped while scanning.
var masters = map[uint32]bool{
	idSegment:    true,
	idCluster:    true,
	idTracks:     true,
	idTrackEntry: true,
	idAudio:      true,
	idBlockGroup: true,
}

// Demux scans data and returns the first Opus audio track with all of its
// packets in stream order. Trailing garbage or a truncated final element is
// tolerated: the packets read so far are returned, matching what a recorder
// that was stopped mid-write leaves behind.
func Demux(data []byte) (*Stream, error) {
	r := reader{buf: data}
	id, size, err := r.header()
	if err != nil || id != idEBML {
		return nil, ErrNotWebM
	}
	if err := r.skip(size); err != nil {
		return nil, ErrNotWebM
	}

	var (
		tracks      []*Track
		cur         *Track
		clusterTime int64
		blocks      []rawBlock
	)
	for !r.done() {
		id, size, err := r.header()
		if err != nil {
			break
		}
		if masters[id] {
			if id == idTrackEntry {
				cur = &Track{Channels: 1}
				tracks = append(tracks, cur)
			}
			continue
		}
		body, err := r.take(size)
		if err != nil {
			break
		}
		switch id {
		case idTrackNumber:
			if cur != nil {
				cur.Number = readUint(body)
			}
		case idTrackType:
			if cur != nil {
				cur.Type = readUint(body)
			}
		case idCodecID:
			if cur != nil {
				cur.CodecID = string(body)
			}
		case idCodecPrivate:
			if cur != nil {
				cur.CodecPrivate = append([]byte(nil), body...)
			}
		case idSampleRate:
			if cur != nil {
				cur.SampleRate = readFloat(body)
			}
		case idChannels:
			if cur != nil {
				cur.Channels = int(readUint(body))
			}
		case idTimecode:
			clusterTime = int64(readUint(body))
		case idSimpleBlock, idBlock:
			b, err := parseBlock(body)
			if err != nil {
				return nil, err
			}
			b.clusterTime = clusterTime
			blocks = append(blocks, b)
		}
	}

	var opus *Track
	for _, t := range tracks {
		if t.CodecID == "A_OPUS" && (t.Type == 0 || t.Type == trackTypeAudio) {
			opus = t
			break
		}
	}
	if opus == nil {
		return nil, ErrNoAudioTrack
	}

	s := &Stream{Track: *opus}
	for _, b := range blocks {
		if b.track != opus.Number {
			continue
		}
		for _, frame := range b.frames {
			s.Packets = append(s.Packets, Packet{Timecode: b.clusterTime + int64(b.timecode), Data: frame})
		}
	}
	return s, nil
}

type rawBlock struct {
	track       uint64
	timecode    int16
	clusterTime int64
	frames      [][]byte
}

// parseBlock decodes the (Simple)Block header and splits laced frames.
func parseBlock(body []byte) (rawBlock, error) {
	r := reader{buf: body}
	track, err := r.vint(false)
	if err != nil {
		return rawBlock{}, fmt.Errorf("webm: block track number: %w", err)
	}
	hdr, err := r.take(3)
	if err != nil {
		return rawBlock{}, fmt.Errorf("webm: block header: %w", err)
	}
	b := rawBlock{
		track:    track,
		timecode: int16(binary.BigEndian.Uint16(hdr[0:2])),
	}
	payload := r.buf[r.off:]

	switch lacing := (hdr[2] >> 1) & 0x03; lacing {
	case 0:
		b.frames = [][]byte{payload}
	case 1:
		b.frames, err = xiphLacing(payload)
	case 3:
		b.frames, err = fixedLacing(payload)
	default:
		err = fmt.Errorf("webm: EBML lacing is not supported")
	}
	return b, err
}

func xiphLacing(p []byte) ([][]byte, error) {
	if len(p) < 1 {
		return nil, errors.New("webm: empty laced block")
	}
	count := int(p[0]) + 1
	off := 1
	sizes := make([]int, count)
	total := 0
	for i := 0; i < count-1; i++ {
		for {
			if off >= len(p) {
				return nil, errors.New("webm: truncated xiph lacing")
			}
			v := int(p[off])
			off++
			sizes[i] += v
			if v != 255 {
				break
			}
		}
		total += sizes[i]
	}
	if off+total > len(p) {
		return nil, errors.New("webm: xiph lace sizes exceed block")
	}
	sizes[count-1] = len(p) - off - total
	frames := make([][]byte, count)
	for i, n := range sizes {
		frames[i] = p[off : off+n]
		off += n
	}
	return frames, nil
}

func fixedLacing(p []byte) ([][]byte, error) {
	if len(p) < 1 {
		return nil, errors.New("webm: empty laced block")
	}
	count := int(p[0]) + 1
	body := p[1:]
	if len(body)%count != 0 {
		return nil, errors.New("webm: fixed lacing size mismatch")
	}
	n := len(body) / count
	frames := make([][]byte, count)
	for i := range frames {
		frames[i] = body[i*n : (i+1)*n]
	}
	return frames, nil
}

// unknownSize marks an element whose size field is all ones.
const unknownSize = math.MaxUint64

var errShort = errors.New("webm: unexpected end of data")

type reader struct {
	buf []byte
	off int
}

func (r *reader) done() bool { return r.off >= len(r.buf) }

// header reads an element ID and its data size.
func (r *reader) header() (uint32, uint64, error) {
	id, err := r.vint(true)
	if err != nil {
		return 0, 0, err
	}
	size, err := r.vint(false)
	if err != nil {
		return 0, 0, err
	}
	return uint32(id), size, nil
}

// vint reads an EBML variable-length integer. IDs keep their marker bit,
// sizes have it stripped and map the all-ones value to unknownSize.
func (r *reader) vint(keepMarker bool) (uint64, error) {
	if r.off >= len(r.buf) {
		return 0, errShort
	}
	first := r.buf[r.off]
	length := 1
	for mask := byte(0x80); mask != 0 && first&mask == 0; mask >>= 1 {
		length++
	}
	if length > 8 || r.off+length > len(r.buf) {
		return 0, errShort
	}
	v := uint64(first)
	if !keepMarker {
		v &= uint64(0xFF >> length)
	}
	allOnes := v == uint64(0xFF>>length)
	for i := 1; i < length; i++ {
		b := r.buf[r.off+i]
		v = v<<8 | uint64(b)
		if b != 0xFF {
			allOnes = false
		}
	}
	r.off += length
	if !keepMarker && allOnes {
		return unknownSize, nil
	}
	return v, nil
}

func (r *reader) take(n uint64) ([]byte, error) {
	if n == unknownSize || n > uint64(len(r.buf)-r.off) {
		return nil, errShort
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *reader) skip(n uint64) error {
	_, err := r.take(n)
	return err
}

func readUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func readFloat(b []byte) float64 {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	}
	return 0
}
