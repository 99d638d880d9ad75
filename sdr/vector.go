// Package sdr implements sparse distributed representations.
// Vectors are bitpacked []uint64 slices; overlap and similarity are bitwise.
package sdr

import "math/bits"

// Vector is an immutable bitpacked binary vector.
// Padding bits in the final word are always zero.
type Vector struct {
	dims int
	data []uint64
}

// New returns an empty Vector of the given dimension.
func New(dims int) Vector {
	if dims <= 0 {
		panic("sdr: dims must be positive")
	}
	return Vector{dims: dims, data: make([]uint64, numWords(dims))}
}

// FromIndices builds a Vector with the given bits on.
// Duplicates are ignored. Panics if an index is outside [0, dims).
func FromIndices(dims int, indices []int) Vector {
	v := New(dims)
	for _, i := range indices {
		if i < 0 || i >= dims {
			panic("sdr: index out of range")
		}
		v.data[i/64] |= 1 << uint(i%64)
	}
	return v
}

// FromDense builds a Vector from a 0/1 slice. Any non-zero entry is on.
func FromDense(dense []int) Vector {
	v := New(len(dense))
	for i, b := range dense {
		if b != 0 {
			v.data[i/64] |= 1 << uint(i%64)
		}
	}
	return v
}

func (v Vector) Dims() int { return v.dims }

// Has reports whether bit i is on.
func (v Vector) Has(i int) bool {
	if i < 0 || i >= v.dims {
		return false
	}
	return v.data[i/64]>>uint(i%64)&1 == 1
}

// Count returns the number of on bits.
func (v Vector) Count() int {
	n := 0
	for _, w := range v.data {
		n += bits.OnesCount64(w)
	}
	return n
}

// Indices returns the on bits in ascending order.
func (v Vector) Indices() []int {
	out := make([]int, 0, v.Count())
	for w, word := range v.data {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, w*64+b)
			word &= word - 1
		}
	}
	return out
}

// Dense returns a 0/1 slice of length Dims.
func (v Vector) Dense() []int {
	out := make([]int, v.dims)
	for _, i := range v.Indices() {
		out[i] = 1
	}
	return out
}

// Overlap returns the number of bits on in both a and b.
func Overlap(a, b Vector) int {
	requireSameDims(a, b)
	n := 0
	for i := range a.data {
		n += bits.OnesCount64(a.data[i] & b.data[i])
	}
	return n
}

// Similarity returns |a AND b| / max(|a|, |b|) in [0.0, 1.0].
// Returns -1 when either vector is empty, since no overlap ratio exists.
func Similarity(a, b Vector) float64 {
	ca, cb := a.Count(), b.Count()
	if ca == 0 || cb == 0 {
		return -1
	}
	return float64(Overlap(a, b)) / float64(max(ca, cb))
}

func numWords(dims int) int {
	return (dims + 63) / 64
}

func requireSameDims(vecs ...Vector) {
	d := vecs[0].dims
	for _, v := range vecs[1:] {
		if v.dims != d {
			panic("sdr: dimension mismatch")
		}
	}
}
