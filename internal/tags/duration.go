package tags

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/dhowden/tag"
)

var (
	errNoFrames    = errors.New("no MPEG audio frame found")
	errNoAtom      = errors.New("atom not found")
	errBadAtom     = errors.New("malformed atom")
	errNotOgg      = errors.New("not an Ogg stream")
	errUnsupported = errors.New("no stream duration reader for this format")
)

// scanWindow bounds how far into a file (or back from its end) the stream
// readers look for frame headers and pages.
const scanWindow = 64 << 10

// streamDuration returns the playing time in whole seconds read from the
// audio stream itself, for files whose tags carry no length.
func streamDuration(r io.ReadSeeker, size int64, ft tag.FileType) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	switch ft {
	case tag.MP3:
		return mp3Duration(r, size)
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return mp4Duration(r, size)
	case tag.OGG:
		return oggDuration(r, size)
	case tag.FLAC:
		return flacDuration(r)
	}
	return 0, errUnsupported
}

// ── MPEG audio ─────────────────────────────────────────────────────────────

type mpegFrame struct {
	mpeg1      bool
	layer      int
	bitrate    int // bits per second
	sampleRate int
	padding    int
	mono       bool
}

var mpegBitrates = map[[2]int][15]int{
	{1, 1}: {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
	{1, 2}: {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
	{1, 3}: {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	{2, 1}: {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
	{2, 2}: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	{2, 3}: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
}

var mpegSampleRates = map[byte][3]int{
	3: {44100, 48000, 32000}, // MPEG-1
	2: {22050, 24000, 16000}, // MPEG-2
	0: {11025, 12000, 8000},  // MPEG-2.5
}

// parseFrameHeader decodes a 4-byte MPEG audio frame header. Free-format
// and reserved values are rejected.
func parseFrameHeader(b []byte) (mpegFrame, bool) {
	if len(b) < 4 || b[0] != 0xff || b[1]&0xe0 != 0xe0 {
		return mpegFrame{}, false
	}
	ver := (b[1] >> 3) & 3
	rates, ok := mpegSampleRates[ver]
	if !ok {
		return mpegFrame{}, false
	}
	layer := 4 - int((b[1]>>1)&3)
	if layer == 4 {
		return mpegFrame{}, false
	}
	brIdx, srIdx := int(b[2]>>4), int((b[2]>>2)&3)
	if brIdx == 0 || brIdx == 15 || srIdx == 3 {
		return mpegFrame{}, false
	}
	table := 1
	if ver != 3 {
		table = 2
	}
	return mpegFrame{
		mpeg1:      ver == 3,
		layer:      layer,
		bitrate:    mpegBitrates[[2]int{table, layer}][brIdx] * 1000,
		sampleRate: rates[srIdx],
		padding:    int((b[2] >> 1) & 1),
		mono:       b[3]>>6 == 3,
	}, true
}

func (f mpegFrame) samples() int {
	switch {
	case f.layer == 1:
		return 384
	case f.layer == 3 && !f.mpeg1:
		return 576
	}
	return 1152
}

func (f mpegFrame) length() int {
	if f.layer == 1 {
		return (12*f.bitrate/f.sampleRate + f.padding) * 4
	}
	return f.samples()/8*f.bitrate/f.sampleRate + f.padding
}

// sideInfo is the size of the Layer III side information that precedes a
// Xing/Info header.
func (f mpegFrame) sideInfo() int {
	switch {
	case f.mpeg1 && f.mono:
		return 17
	case f.mpeg1:
		return 32
	case f.mono:
		return 9
	}
	return 17
}

// mp3Duration locates the first audio frame after any ID3v2 tag. A Xing,
// Info or VBRI header gives the exact frame count; otherwise the stream is
// taken to be constant bitrate.
func mp3Duration(r io.ReadSeeker, size int64) (int64, error) {
	start, err := id3v2Length(r)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	buf, err := readUpTo(r, scanWindow)
	if err != nil {
		return 0, err
	}

	for i := 0; i+4 <= len(buf); i++ {
		f, ok := parseFrameHeader(buf[i:])
		if !ok {
			continue
		}
		// A real frame is followed by another one.
		if next := i + f.length(); next+4 <= len(buf) {
			if _, ok := parseFrameHeader(buf[next:]); !ok {
				continue
			}
		}
		if frames, ok := vbrFrames(buf[i:], f); ok {
			return frames * int64(f.samples()) / int64(f.sampleRate), nil
		}
		audio := size - start - int64(i)
		if hasID3v1(r, size) {
			audio -= 128
		}
		return audio * 8 / int64(f.bitrate), nil
	}
	return 0, errNoFrames
}

// vbrFrames reads the frame count from a Xing/Info or VBRI header in frame.
func vbrFrames(frame []byte, f mpegFrame) (int64, bool) {
	if off := 4 + f.sideInfo(); off+12 <= len(frame) {
		id := string(frame[off : off+4])
		flags := binary.BigEndian.Uint32(frame[off+4:])
		if (id == "Xing" || id == "Info") && flags&1 != 0 {
			if n := binary.BigEndian.Uint32(frame[off+8:]); n > 0 {
				return int64(n), true
			}
		}
	}
	if off := 4 + 32; off+18 <= len(frame) && string(frame[off:off+4]) == "VBRI" {
		if n := binary.BigEndian.Uint32(frame[off+14:]); n > 0 {
			return int64(n), true
		}
	}
	return 0, false
}

// id3v2Length returns the size of a leading ID3v2 tag including its header
// and footer, or 0 when there is none.
func id3v2Length(r io.ReadSeeker) (int64, error) {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	if string(hdr[:3]) != "ID3" {
		return 0, nil
	}
	n := int64(hdr[6]&0x7f)<<21 | int64(hdr[7]&0x7f)<<14 | int64(hdr[8]&0x7f)<<7 | int64(hdr[9]&0x7f)
	n += 10
	if hdr[5]&0x10 != 0 {
		n += 10
	}
	return n, nil
}

func hasID3v1(r io.ReadSeeker, size int64) bool {
	if size < 128 {
		return false
	}
	var id [3]byte
	if _, err := r.Seek(size-128, io.SeekStart); err != nil {
		return false
	}
	_, err := io.ReadFull(r, id[:])
	return err == nil && string(id[:]) == "TAG"
}

// ── MP4 ────────────────────────────────────────────────────────────────────

// mp4Duration reads the movie header (moov/mvhd) time scale and duration.
func mp4Duration(r io.ReadSeeker, size int64) (int64, error) {
	off, n, err := findAtom(r, 0, size, "moov")
	if err != nil {
		return 0, err
	}
	off, n, err = findAtom(r, off, off+n, "mvhd")
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	body, err := readUpTo(r, int(min(n, 32)))
	if err != nil {
		return 0, err
	}

	var scale, dur uint64
	switch {
	case len(body) >= 32 && body[0] == 1:
		scale = uint64(binary.BigEndian.Uint32(body[20:]))
		dur = binary.BigEndian.Uint64(body[24:])
	case len(body) >= 20 && body[0] == 0:
		scale = uint64(binary.BigEndian.Uint32(body[12:]))
		dur = uint64(binary.BigEndian.Uint32(body[16:]))
	default:
		return 0, errBadAtom
	}
	if scale == 0 {
		return 0, errBadAtom
	}
	return int64(dur / scale), nil
}

// findAtom returns the offset and length of the body of the first atom
// called name between start and end.
func findAtom(r io.ReadSeeker, start, end int64, name string) (int64, int64, error) {
	var hdr [16]byte
	for pos := start; pos+8 <= end; {
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return 0, 0, err
		}
		if _, err := io.ReadFull(r, hdr[:8]); err != nil {
			return 0, 0, err
		}
		size, hl := int64(binary.BigEndian.Uint32(hdr[:4])), int64(8)
		switch size {
		case 0:
			size = end - pos
		case 1:
			if _, err := io.ReadFull(r, hdr[8:16]); err != nil {
				return 0, 0, err
			}
			size, hl = int64(binary.BigEndian.Uint64(hdr[8:16])), 16
		}
		if size < hl || pos+size > end {
			return 0, 0, errBadAtom
		}
		if string(hdr[4:8]) == name {
			return pos + hl, size - hl, nil
		}
		pos += size
	}
	return 0, 0, errNoAtom
}

// ── Ogg ────────────────────────────────────────────────────────────────────

// oggDuration divides the granule position of the last page of the first
// logical stream by the sample rate from its identification header. Opus
// granules run at 48 kHz and include the pre-skip.
func oggDuration(r io.ReadSeeker, size int64) (int64, error) {
	head, err := readUpTo(r, 512)
	if err != nil {
		return 0, err
	}
	if len(head) < 28 || string(head[:4]) != "OggS" {
		return 0, errNotOgg
	}
	serial := binary.LittleEndian.Uint32(head[14:])
	segs := int(head[26])
	if len(head) < 27+segs {
		return 0, errNotOgg
	}
	packet := head[27+segs:]

	var rate, preSkip int64
	switch {
	case len(packet) >= 16 && string(packet[:7]) == "\x01vorbis":
		rate = int64(binary.LittleEndian.Uint32(packet[12:]))
	case len(packet) >= 12 && string(packet[:8]) == "OpusHead":
		rate = 48000
		preSkip = int64(binary.LittleEndian.Uint16(packet[10:]))
	default:
		return 0, errUnsupported
	}
	if rate == 0 {
		return 0, errNotOgg
	}

	tailStart := max(size-scanWindow, 0)
	if _, err := r.Seek(tailStart, io.SeekStart); err != nil {
		return 0, err
	}
	tail, err := readUpTo(r, int(size-tailStart))
	if err != nil {
		return 0, err
	}
	for end := len(tail); ; {
		i := bytes.LastIndex(tail[:end], []byte("OggS"))
		if i < 0 {
			return 0, errNotOgg
		}
		if i+18 <= len(tail) && binary.LittleEndian.Uint32(tail[i+14:]) == serial {
			granule := int64(binary.LittleEndian.Uint64(tail[i+6:]))
			if granule > preSkip {
				return (granule - preSkip) / rate, nil
			}
		}
		end = i
	}
}

// readUpTo reads at most n bytes; a short read at end of file is not an error.
func readUpTo(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:got], nil
}
