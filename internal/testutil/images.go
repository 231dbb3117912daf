package testutil

// Image fixtures: byte slices of the requested size that start with the
// format's magic number. The remaining bytes are filler.

func JPEG(size int) []byte { return withMagic(size, []byte{0xFF, 0xD8, 0xFF, 0xE0}) }

func PNG(size int) []byte {
	return withMagic(size, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
}

func GIF(size int) []byte { return withMagic(size, []byte("GIF89a")) }

func WEBP(size int) []byte { return withMagic(size, []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")) }

// Garbage returns size bytes that match no image signature.
func Garbage(size int) []byte { return withMagic(size, []byte("not an image")) }

func withMagic(size int, magic []byte) []byte {
	if size < len(magic) {
		size = len(magic)
	}
	b := make([]byte, size)
	copy(b, magic)
	for i := len(magic); i < size; i++ {
		b[i] = byte(i % 251)
	}
	return b
}
