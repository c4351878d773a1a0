// Package idgen produces client-side identifiers for records created before
// the server has assigned an authoritative id.
package idgen

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// New returns a v4 UUID string. It prefers the platform's cryptographically
// strong random source and falls back to a pseudo-random generator when that
// source is unavailable. It never fails: a temporary id only has to be
// unique within one local database until the server confirms the record.
func New() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return pseudoRandom()
}

func pseudoRandom() string {
	var b [16]byte
	for i := range b {
		b[i] = byte(rand.UintN(256))
	}
	// Version 4, RFC 4122 variant.
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		// 16 bytes always parse; keep the compiler honest.
		panic(err)
	}
	return id.String()
}
