package capture

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
)

// Fingerprint hashes a text or file payload into its dedup key. The kind is
// mixed into the digest so identical content under different kinds can never
// collide.
func Fingerprint(kind, content string) string {
	h := sha256.New()
	io.WriteString(h, kind)
	io.WriteString(h, ":")
	io.WriteString(h, content)
	return hex.EncodeToString(h.Sum(nil))
}

// ImageFingerprint hashes an image payload: the dimensions as little-endian
// 64-bit values followed by the PNG bytes. Folding the dimensions in keeps
// differently sized renders of identical bytes apart.
func ImageFingerprint(width, height int64, png []byte) string {
	h := sha256.New()
	io.WriteString(h, "image:")
	binary.Write(h, binary.LittleEndian, uint64(width))
	binary.Write(h, binary.LittleEndian, uint64(height))
	h.Write(png)
	return hex.EncodeToString(h.Sum(nil))
}
