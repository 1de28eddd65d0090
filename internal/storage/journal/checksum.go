package journal

import (
	"encoding/binary"
	"hash/crc32"
)

// checksum covers the sequence number and the encoded event bytes.
// The sequence is written big-endian so reordered records fail verification.
func checksum(seq uint64, payload []byte) uint32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	h := crc32.NewIEEE()
	h.Write(buf[:])
	h.Write(payload)
	return h.Sum32()
}
