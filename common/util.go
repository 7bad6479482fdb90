package common

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

// Concat concatenates the byte-like arguments into one slice. Used to build
// prefixed keys (partition byte + encoded key) without a caller having to
// juggle a bytes.Buffer by hand.
func Concat(par ...interface{}) []byte {
	var buf []byte
	for _, p := range par {
		switch p := p.(type) {
		case []byte:
			buf = append(buf, p...)
		case byte:
			buf = append(buf, p)
		case string:
			buf = append(buf, p...)
		case interface{ Bytes() []byte }:
			buf = append(buf, p.Bytes()...)
		case int:
			if p < 0 || p > 255 {
				panic("Concat: not a 1 byte integer value")
			}
			buf = append(buf, byte(p))
		default:
			Assertf(false, "Concat: unsupported type %T", p)
		}
	}
	return buf
}

// concatBytes allocates exactly the combined size up front, borrowing the
// backing array from the small-buffer pool.
func concatBytes(data ...[]byte) []byte {
	size := 0
	for _, d := range data {
		size += len(d)
	}
	ret := AllocSmallBuf(size)
	for _, d := range data {
		ret = append(ret, d...)
	}
	return ret
}

// UseConcatBytes hands the caller a pooled concatenation of data and returns
// the backing buffer to the pool once fun returns.
func UseConcatBytes(fun func(cat []byte), data ...[]byte) {
	cat := concatBytes(data...)
	fun(cat)
	DisposeSmallBuf(cat)
}

// ---------------------------------------------------------------------------
// length-prefixed byte encodings, used by the key/value codecs

func ReadBytes16(r io.Reader) ([]byte, error) {
	var length uint16
	if err := ReadUint16(r, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	ret := make([]byte, length)
	if _, err := r.Read(ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func WriteBytes16(w io.Writer, data []byte) error {
	if len(data) > math.MaxUint16 {
		panic(fmt.Sprintf("WriteBytes16: too long data (%v)", len(data)))
	}
	if err := WriteUint16(w, uint16(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

func ReadUint16(r io.Reader, pval *uint16) error {
	var tmp2 [2]byte
	if _, err := r.Read(tmp2[:]); err != nil {
		return err
	}
	*pval = binary.LittleEndian.Uint16(tmp2[:])
	return nil
}

func WriteUint16(w io.Writer, val uint16) error {
	_, err := w.Write(Uint16To2Bytes(val))
	return err
}

func Uint16To2Bytes(val uint16) []byte {
	var tmp2 [2]byte
	binary.LittleEndian.PutUint16(tmp2[:], val)
	return tmp2[:]
}

func ReadByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func WriteByte(w io.Writer, val byte) error {
	_, err := w.Write([]byte{val})
	return err
}

func Uint32To4Bytes(val uint32) []byte {
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], val)
	return tmp4[:]
}

func Uint32From4Bytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errors.New("len(b) != 4")
	}
	return binary.LittleEndian.Uint32(b), nil
}

func MustUint32From4Bytes(b []byte) uint32 {
	ret, err := Uint32From4Bytes(b)
	if err != nil {
		panic(err)
	}
	return ret
}

func ReadUint32(r io.Reader, pval *uint32) error {
	var tmp4 [4]byte
	if _, err := r.Read(tmp4[:]); err != nil {
		return err
	}
	*pval = MustUint32From4Bytes(tmp4[:])
	return nil
}

func WriteUint32(w io.Writer, val uint32) error {
	_, err := w.Write(Uint32To4Bytes(val))
	return err
}

// Blake2b160 digests data down to 20 bytes, the seed mixed into every
// generated OID so ids from distinct processes don't collide.
func Blake2b160(data []byte) (ret [20]byte) {
	hash, _ := blake2b.New(20, nil)
	if _, err := hash.Write(data); err != nil {
		panic(err)
	}
	copy(ret[:], hash.Sum(nil))
	return
}

// CatchPanicOrError runs f and turns a panic into a returned error, so tests
// exercising Assertf-guarded invariants can assert on the failure uniformly.
func CatchPanicOrError(f func() error) error {
	var err error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var ok bool
			if err, ok = r.(error); !ok {
				err = fmt.Errorf("%v", r)
			}
		}()
		err = f()
	}()
	return err
}

func RequireErrorWith(t *testing.T, err error, fragments ...string) {
	require.Error(t, err)
	for _, f := range fragments {
		require.Contains(t, err.Error(), f)
	}
}

// Assertf panics with a formatted message when cond is false. Arguments that
// are zero-arg closures are evaluated lazily, so a caller can pass an
// expensive diagnostic without paying for it on the non-failing path.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("assertion failed:: "+format, EvalLazyArgs(args...)...))
	}
}

func AssertNoError(err error, prefix ...string) {
	pref := "error: "
	if len(prefix) > 0 {
		pref = strings.Join(prefix, " ") + ": "
	}
	Assertf(err == nil, pref+"%w", err)
}

func EvalLazyArgs(args ...any) []any {
	ret := make([]any, len(args))
	for i, arg := range args {
		switch funArg := arg.(type) {
		case func() string:
			ret[i] = funArg()
		case func() bool:
			ret[i] = funArg()
		case func() int:
			ret[i] = funArg()
		case func() byte:
			ret[i] = funArg()
		case func() uint:
			ret[i] = funArg()
		case func() uint16:
			ret[i] = funArg()
		case func() uint32:
			ret[i] = funArg()
		case func() uint64:
			ret[i] = funArg()
		case func() int16:
			ret[i] = funArg()
		case func() int32:
			ret[i] = funArg()
		case func() int64:
			ret[i] = funArg()
		case func() any:
			ret[i] = funArg()
		default:
			ret[i] = arg
		}
	}
	return ret
}
