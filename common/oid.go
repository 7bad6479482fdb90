package common

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
)

// OID is the opaque object identifier a jar assigns to a persistent object.
// 8 bytes.
type OID [8]byte

// NilOID is the zero identifier: no transient object ever compares equal to
// it once it has been placed in a jar.
var NilOID OID

func (o OID) IsNil() bool { return o == NilOID }

func (o OID) String() string { return hex.EncodeToString(o[:]) }

func (o OID) Bytes() []byte {
	b := make([]byte, 8)
	copy(b, o[:])
	return b
}

func OIDFromUint64(v uint64) OID {
	var o OID
	binary.BigEndian.PutUint64(o[:], v)
	return o
}

func OIDFromBytes(b []byte) OID {
	var o OID
	copy(o[:], b)
	return o
}

// Serial is the 8-byte version stamp used for conflict detection.
type Serial [8]byte

var NilSerial Serial

func SerialFromUint64(v uint64) Serial {
	var s Serial
	binary.BigEndian.PutUint64(s[:], v)
	return s
}

func (s Serial) Uint64() uint64 { return binary.BigEndian.Uint64(s[:]) }

func (s Serial) Bytes() []byte {
	b := make([]byte, 8)
	copy(b, s[:])
	return b
}

// OIDGenerator issues fresh OIDs for a jar. Each OID is the first 8 bytes of
// a Blake2b160 digest of the seed's digest plus a monotonic counter that
// starts at 1, so jars with different seeds draw from unrelated sequences
// (collisions are improbable, not ruled out) and generators with the same
// seed issue the same sequence.
type OIDGenerator struct {
	seed    [20]byte
	counter uint64
}

func NewOIDGenerator(seed []byte) *OIDGenerator {
	return &OIDGenerator{seed: Blake2b160(seed)}
}

func (g *OIDGenerator) Next() OID {
	n := atomic.AddUint64(&g.counter, 1)
	var buf [28]byte
	copy(buf[:20], g.seed[:])
	binary.BigEndian.PutUint64(buf[20:], n)
	digest := Blake2b160(buf[:])
	var o OID
	copy(o[:], digest[:8])
	return o
}
