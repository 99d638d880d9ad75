package sdr

import "math/rand"

// Random generates a deterministic Vector with exactly active bits on.
// The same (dims, active, seed) triple always produces the same vector.
func Random(dims, active int, seed uint64) Vector {
	if active < 0 || active > dims {
		panic("sdr: active must be in [0, dims]")
	}
	v := New(dims)
	r := rand.New(rand.NewSource(int64(seed))) //nolint:gosec
	for _, i := range r.Perm(dims)[:active] {
		v.data[i/64] |= 1 << uint(i%64)
	}
	return v
}
