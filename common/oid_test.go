package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOIDNilIsZeroValue(t *testing.T) {
	var o OID
	require.True(t, o.IsNil())
	require.True(t, NilOID.IsNil())
	require.False(t, OIDFromUint64(1).IsNil())
}

func TestOIDFromUint64RoundTripsThroughBytes(t *testing.T) {
	o := OIDFromUint64(0xdeadbeef)
	b := o.Bytes()
	require.Len(t, b, 8)

	back := OIDFromBytes(b)
	require.Equal(t, o, back)
}

func TestOIDStringIsHex(t *testing.T) {
	o := OIDFromUint64(1)
	require.Equal(t, "0000000000000001", o.String())
}

func TestOIDFromBytesShorterThanEightIsZeroPadded(t *testing.T) {
	o := OIDFromBytes([]byte{0x01, 0x02})
	want := OID{0x01, 0x02, 0, 0, 0, 0, 0, 0}
	require.Equal(t, want, o)
}

func TestSerialFromUint64RoundTrips(t *testing.T) {
	s := SerialFromUint64(12345)
	require.Equal(t, uint64(12345), s.Uint64())
	require.Len(t, s.Bytes(), 8)
}

func TestNilSerialIsZeroValue(t *testing.T) {
	require.Equal(t, uint64(0), NilSerial.Uint64())
}

func TestOIDGeneratorNextIsUniquePerCall(t *testing.T) {
	g := NewOIDGenerator([]byte("seed"))
	seen := make(map[OID]bool)
	for i := 0; i < 1000; i++ {
		oid := g.Next()
		require.False(t, seen[oid], "generator produced a duplicate oid")
		seen[oid] = true
		require.False(t, oid.IsNil())
	}
}

func TestOIDGeneratorDifferentSeedsProduceDifferentStreams(t *testing.T) {
	a := NewOIDGenerator([]byte("seed-a"))
	b := NewOIDGenerator([]byte("seed-b"))
	require.NotEqual(t, a.Next(), b.Next())
}
