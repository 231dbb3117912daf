package upload

import (
	"bytes"
	"errors"
	"io"
)

// sniffLen is the number of leading bytes needed to recognise every
// supported format.
const sniffLen = 12

// signature matches a byte pattern at a fixed offset.
type signature struct {
	offset int
	magic  []byte
}

var imageSignatures = map[string][]signature{
	"jpeg": {{0, []byte{0xFF, 0xD8}}},
	"png":  {{0, []byte{0x89, 0x50, 0x4E, 0x47}}},
	"gif":  {{0, []byte("GIF")}},
	"webp": {{0, []byte("RIFF")}, {8, []byte("WEBP")}},
}

// sniffFormat returns the image format whose signature matches header.
func sniffFormat(header []byte) (string, bool) {
	for format, sigs := range imageSignatures {
		if matchAll(header, sigs) {
			return format, true
		}
	}
	return "", false
}

func matchAll(header []byte, sigs []signature) bool {
	for _, s := range sigs {
		end := s.offset + len(s.magic)
		if len(header) < end || !bytes.Equal(header[s.offset:end], s.magic) {
			return false
		}
	}
	return true
}

// readHeader peeks at the first sniffLen bytes of rs and rewinds it.
func readHeader(rs io.ReadSeeker) ([]byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return buf[:n], nil
}
