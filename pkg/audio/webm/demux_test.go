package webm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// el encodes an EBML element with an 8-byte size field.
func el(id uint32, children ...[]byte) []byte {
	body := bytes.Join(children, nil)
	var out []byte
	for shift := 24; shift >= 0; shift -= 8 {
		if b := byte(id >> shift); b != 0 || len(out) > 0 {
			out = append(out, b)
		}
	}
	size := make([]byte, 8)
	binary.BigEndian.PutUint64(size, uint64(len(body)))
	size[0] = 0x01
	return append(append(out, size...), body...)
}

// unsized encodes a master element header with unknown size.
func unsized(id uint32) []byte {
	e := el(id)
	n := len(e) - 8
	return append(e[:n], 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
}

func uintEl(id uint32, v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return el(id, b)
}

func simpleBlock(track byte, timecode int16, payload []byte) []byte {
	hdr := []byte{0x80 | track, byte(uint16(timecode) >> 8), byte(timecode), 0x80}
	return el(idSimpleBlock, hdr, payload)
}

func opusHead(preSkip uint16) []byte {
	h := make([]byte, 19)
	copy(h, "OpusHead")
	h[8] = 1
	h[9] = 1
	binary.LittleEndian.PutUint16(h[10:], preSkip)
	binary.LittleEndian.PutUint32(h[12:], 48000)
	return h
}

func recording(blocks ...[]byte) []byte {
	header := el(idEBML, el(0x4282, []byte("webm")))
	tracks := el(idTracks,
		el(idTrackEntry,
			uintEl(idTrackNumber, 1),
			uintEl(idTrackType, trackTypeAudio),
			el(idCodecID, []byte("A_OPUS")),
			el(idCodecPrivate, opusHead(312)),
			el(idAudio, uintEl(idChannels, 1)),
		),
	)
	var b bytes.Buffer
	b.Write(header)
	b.Write(unsized(idSegment))
	b.Write(el(0x1549A966, uintEl(0x2AD7B1, 1000000))) // Info/TimecodeScale, skipped
	b.Write(tracks)
	b.Write(unsized(idCluster))
	b.Write(uintEl(idTimecode, 0))
	for _, blk := range blocks {
		b.Write(blk)
	}
	return b.Bytes()
}

func TestDemux_SimpleBlocks(t *testing.T) {
	data := recording(
		simpleBlock(1, 0, []byte{0xAA}),
		simpleBlock(2, 0, []byte{0xEE}), // other track
		simpleBlock(1, 20, []byte{0xBB, 0xCC}),
	)
	s, err := Demux(data)
	if err != nil {
		t.Fatalf("Demux: %v", err)
	}
	if s.Track.CodecID != "A_OPUS" || s.Track.Channels != 1 {
		t.Errorf("track: %+v", s.Track)
	}
	if preSkip(s.Track.CodecPrivate) != 312 {
		t.Errorf("pre-skip: got %d, want 312", preSkip(s.Track.CodecPrivate))
	}
	if len(s.Packets) != 2 {
		t.Fatalf("packets: got %d, want 2", len(s.Packets))
	}
	if s.Packets[1].Timecode != 20 || !bytes.Equal(s.Packets[1].Data, []byte{0xBB, 0xCC}) {
		t.Errorf("second packet: %+v", s.Packets[1])
	}
}

func TestDemux_SecondClusterOffsetsTimecode(t *testing.T) {
	data := recording(simpleBlock(1, 0, []byte{1}))
	data = append(data, unsized(idCluster)...)
	data = append(data, uintEl(idTimecode, 1000)...)
	data = append(data, simpleBlock(1, 5, []byte{2})...)

	s, err := Demux(data)
	if err != nil {
		t.Fatalf("Demux: %v", err)
	}
	if len(s.Packets) != 2 || s.Packets[1].Timecode != 1005 {
		t.Errorf("packets: %+v", s.Packets)
	}
}

func TestDemux_TruncatedTail(t *testing.T) {
	data := recording(simpleBlock(1, 0, []byte{1, 2, 3}), simpleBlock(1, 20, []byte{4, 5, 6}))
	s, err := Demux(data[:len(data)-2])
	if err != nil {
		t.Fatalf("Demux: %v", err)
	}
	if len(s.Packets) != 1 {
		t.Errorf("packets: got %d, want 1", len(s.Packets))
	}
}

func TestDemux_Errors(t *testing.T) {
	if _, err := Demux([]byte("RIFF....WAVE")); !errors.Is(err, ErrNotWebM) {
		t.Errorf("wav: got %v, want ErrNotWebM", err)
	}
	noTracks := append(el(idEBML), unsized(idSegment)...)
	if _, err := Demux(noTracks); !errors.Is(err, ErrNoAudioTrack) {
		t.Errorf("no tracks: got %v, want ErrNoAudioTrack", err)
	}
}

func TestLacing(t *testing.T) {
	t.Run("xiph", func(t *testing.T) {
		// 3 frames: sizes 2, 256 (255+1), remainder 1.
		payload := []byte{2, 2, 255, 1}
		payload = append(payload, make([]byte, 2+256+1)...)
		frames, err := xiphLacing(payload)
		if err != nil {
			t.Fatalf("xiphLacing: %v", err)
		}
		if len(frames) != 3 || len(frames[0]) != 2 || len(frames[1]) != 256 || len(frames[2]) != 1 {
			t.Errorf("frame sizes: %d %d %d", len(frames[0]), len(frames[1]), len(frames[2]))
		}
	})
	t.Run("fixed", func(t *testing.T) {
		frames, err := fixedLacing([]byte{1, 1, 2, 3, 4})
		if err != nil {
			t.Fatalf("fixedLacing: %v", err)
		}
		if len(frames) != 2 || !bytes.Equal(frames[1], []byte{3, 4}) {
			t.Errorf("frames: %v", frames)
		}
		if _, err := fixedLacing([]byte{1, 1, 2, 3}); err == nil {
			t.Error("expected mismatch error")
		}
	})
}
