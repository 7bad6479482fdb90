package common

import "fmt"

type Mutations struct {
	set                 map[string][]byte
	del                 map[string]struct{}
	mustNoDoubleBooking func(error) // is called on double setting and double deleting
}

func NewMutations(doubleBookingCallback ...func(error)) *Mutations {
	ret := &Mutations{
		set: make(map[string][]byte),
		del: make(map[string]struct{}),
	}
	if len(doubleBookingCallback) > 0 {
		ret.mustNoDoubleBooking = doubleBookingCallback[0]
	}
	return ret
}

// NewMutationsMustNoDoubleBooking returns Mutations that panics (via Assertf)
// the moment the same key is set or deleted twice in the same batch. Used by
// jar adaptors where double-booking a key inside one commit indicates a bug
// in the caller's transaction discipline, not a recoverable condition.
func NewMutationsMustNoDoubleBooking() *Mutations {
	return NewMutations(func(err error) {
		Assertf(false, "%v", err)
	})
}

func (m *Mutations) Set(k, v []byte) {
	ks := string(k)
	if m.mustNoDoubleBooking != nil {
		if len(v) > 0 {
			// set
			if _, already := m.set[ks]; already {
				m.mustNoDoubleBooking(fmt.Errorf("repetitive SET mutation. The key '%s' was already set", ks))
			} else if _, already = m.del[ks]; already {
				m.mustNoDoubleBooking(fmt.Errorf("repetitive SET mutation. The key '%s' was already deleted", ks))
			}
		} else {
			// delete
			if _, already := m.del[ks]; already {
				m.mustNoDoubleBooking(fmt.Errorf("repetitive DEL mutation. The key '%s' was already deleted", ks))
			}
		}
	}
	if len(v) > 0 {
		delete(m.del, ks)
		m.set[ks] = v
	} else {
		delete(m.set, ks)
		m.del[ks] = struct{}{}
	}
}

// Iterate calls fun for every mutation in the batch. isDelete is true for
// deletions, in which case v is always nil.
func (m *Mutations) Iterate(fun func(k []byte, v []byte, isDelete bool) bool) {
	for k, v := range m.set {
		if !fun([]byte(k), v, false) {
			return
		}
	}
	for k := range m.del {
		if !fun([]byte(k), nil, true) {
			return
		}
	}
}

func (m *Mutations) Write(w KVWriter) {
	for k, v := range m.set {
		w.Set([]byte(k), v)
	}
	for k := range m.del {
		w.Set([]byte(k), nil)
	}
}

func (m *Mutations) LenSet() int {
	return len(m.set)
}

func (m *Mutations) LenDel() int {
	return len(m.del)
}
