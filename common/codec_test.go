package common

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntOpsKeyCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, IntOps.EncodeKey(&buf, -42))
	got, err := IntOps.DecodeKey(&buf)
	require.NoError(t, err)
	require.Equal(t, -42, got)
}

func TestIntOpsValueCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, IntOps.EncodeValue(&buf, 12345))
	got, err := IntOps.DecodeValue(&buf)
	require.NoError(t, err)
	require.Equal(t, 12345, got)
}

func TestInt64OpsCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Int64Ops.EncodeKey(&buf, -9223372036854775808))
	gotKey, err := Int64Ops.DecodeKey(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(-9223372036854775808), gotKey)

	buf.Reset()
	require.NoError(t, Int64Ops.EncodeValue(&buf, 7))
	gotVal, err := Int64Ops.DecodeValue(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(7), gotVal)
}

func TestFloat64OpsValueCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Float64Ops.EncodeValue(&buf, 3.14159))
	got, err := Float64Ops.DecodeValue(&buf)
	require.NoError(t, err)
	require.InDelta(t, 3.14159, got, 1e-12)
}

func TestBytesOpsCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := []byte("hello, bytes")
	require.NoError(t, BytesOps.EncodeKey(&buf, in))
	got, err := BytesOps.DecodeKey(&buf)
	require.NoError(t, err)
	require.Equal(t, in, got)

	buf.Reset()
	require.NoError(t, BytesOps.EncodeValue(&buf, in))
	got, err = BytesOps.DecodeValue(&buf)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestBytesOpsCodecRoundTripsEmptySlice(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BytesOps.EncodeKey(&buf, []byte{}))
	got, err := BytesOps.DecodeKey(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte{}, got)
}

func TestStringOpsKeyCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, StringOps.EncodeKey(&buf, "some key"))
	got, err := StringOps.DecodeKey(&buf)
	require.NoError(t, err)
	require.Equal(t, "some key", got)
}

func TestObjectCodecDelegatesToSuppliedFuncs(t *testing.T) {
	codec := ObjectCodec[int]{
		EncodeFunc: func(w io.Writer, v int) error {
			_, err := w.Write([]byte{byte(v)})
			return err
		},
		DecodeFunc: func(r io.Reader) (int, error) {
			buf := make([]byte, 1)
			_, err := r.Read(buf)
			return int(buf[0]), err
		},
	}

	var buf bytes.Buffer
	require.NoError(t, codec.EncodeKey(&buf, 7))
	got, err := codec.DecodeKey(&buf)
	require.NoError(t, err)
	require.Equal(t, 7, got)
}
