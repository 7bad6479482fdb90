package common

import (
	"encoding/binary"
	"io"
	"math"
)

// KeyCodec and ValueCodec let a Bucket/BTree serialize its payload without hardcoding a wire format per key/value
// type. Concrete KeyOps/ValueOps instantiations implement these directly;
// ObjectOps/ObjectValueOps take user-supplied codec funcs since an opaque
// type has no canonical encoding.
type KeyCodec[K any] interface {
	EncodeKey(w io.Writer, k K) error
	DecodeKey(r io.Reader) (K, error)
}

type ValueCodec[V any] interface {
	EncodeValue(w io.Writer, v V) error
	DecodeValue(r io.Reader) (V, error)
}

func (intOps) EncodeKey(w io.Writer, k int) error { return WriteUint32(w, uint32(int32(k))) }
func (intOps) DecodeKey(r io.Reader) (int, error) {
	var v uint32
	if err := ReadUint32(r, &v); err != nil {
		return 0, err
	}
	return int(int32(v)), nil
}
func (intOps) EncodeValue(w io.Writer, v int) error { return WriteUint32(w, uint32(int32(v))) }
func (intOps) DecodeValue(r io.Reader) (int, error) {
	var v uint32
	if err := ReadUint32(r, &v); err != nil {
		return 0, err
	}
	return int(int32(v)), nil
}

func (int64Ops) EncodeKey(w io.Writer, k int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(k))
	_, err := w.Write(buf[:])
	return err
}
func (int64Ops) DecodeKey(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}
func (o int64Ops) EncodeValue(w io.Writer, v int64) error { return o.EncodeKey(w, v) }
func (o int64Ops) DecodeValue(r io.Reader) (int64, error) { return o.DecodeKey(r) }

func (float64Ops) EncodeValue(w io.Writer, v float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}
func (float64Ops) DecodeValue(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

func (bytesOps) EncodeKey(w io.Writer, k []byte) error { return WriteBytes16(w, k) }
func (bytesOps) DecodeKey(r io.Reader) ([]byte, error) { return ReadBytes16(r) }
func (bytesOps) EncodeValue(w io.Writer, v []byte) error { return WriteBytes16(w, v) }
func (bytesOps) DecodeValue(r io.Reader) ([]byte, error) { return ReadBytes16(r) }

func (stringOps) EncodeKey(w io.Writer, k string) error { return WriteBytes16(w, []byte(k)) }
func (stringOps) DecodeKey(r io.Reader) (string, error) {
	b, err := ReadBytes16(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
func (o stringOps) EncodeValue(w io.Writer, v string) error { return o.EncodeKey(w, v) }
func (o stringOps) DecodeValue(r io.Reader) (string, error) { return o.DecodeKey(r) }

// ObjectCodec bundles encode/decode funcs for ObjectOps/ObjectValueOps, whose
// element type has no canonical wire form the library can guess.
type ObjectCodec[T any] struct {
	EncodeFunc func(w io.Writer, t T) error
	DecodeFunc func(r io.Reader) (T, error)
}

func (c ObjectCodec[T]) EncodeKey(w io.Writer, t T) error    { return c.EncodeFunc(w, t) }
func (c ObjectCodec[T]) DecodeKey(r io.Reader) (T, error)    { return c.DecodeFunc(r) }
func (c ObjectCodec[T]) EncodeValue(w io.Writer, t T) error  { return c.EncodeFunc(w, t) }
func (c ObjectCodec[T]) DecodeValue(r io.Reader) (T, error)  { return c.DecodeFunc(r) }
