package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"slices"

	"github.com/roach88/quorum/internal/ir"
)

// DomainDigest prefixes state digests.
const DomainDigest = "quorum/state/v1"

// Digest hashes a record snapshot in address order. Two stores holding the
// same records at the same addresses have the same digest. Each record is
// written as its address, its length as a big-endian uint64, then its bytes.
func Digest(records map[ir.Address][]byte) string {
	addrs := make([]ir.Address, 0, len(records))
	for addr := range records {
		addrs = append(addrs, addr)
	}
	slices.SortFunc(addrs, func(a, b ir.Address) int {
		return bytes.Compare(a[:], b[:])
	})

	h := sha256.New()
	h.Write([]byte(DomainDigest))
	h.Write([]byte{0x00})
	for _, addr := range addrs {
		h.Write(addr[:])
		data := records[addr]
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(data)))
		h.Write(n[:])
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
