package tags

import (
	"errors"
	"io"
)

var errNotFLAC = errors.New("not a FLAC stream")

// flacDuration returns the stream length in whole seconds from the
// STREAMINFO block, which the format requires to come first.
func flacDuration(r io.Reader) (int64, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	if string(hdr[:4]) != "fLaC" || hdr[4]&0x7f != 0 {
		return 0, errNotFLAC
	}
	size := int(hdr[5])<<16 | int(hdr[6])<<8 | int(hdr[7])
	if size < 18 {
		return 0, errNotFLAC
	}

	var si [18]byte
	if _, err := io.ReadFull(r, si[:]); err != nil {
		return 0, err
	}
	rate := int64(si[10])<<12 | int64(si[11])<<4 | int64(si[12])>>4
	samples := int64(si[13]&0x0f)<<32 | int64(si[14])<<24 | int64(si[15])<<16 | int64(si[16])<<8 | int64(si[17])
	if rate == 0 {
		return 0, errNotFLAC
	}
	return samples / rate, nil
}
