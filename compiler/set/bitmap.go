package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a growable set of small non-negative ints.
	// Zero value is an empty set.
	Bitmap struct {
		b  []uint64
		b0 [1]uint64
	}
)

func NewBitmap(n int) *Bitmap {
	s := MakeBitmap(n)
	return &s
}

// MakeBitmap preallocates room for n elements.
func MakeBitmap(n int) Bitmap {
	s := Bitmap{}
	s.b = s.b0[:]

	n = (n + 63) / 64

	if n > len(s.b) {
		s.b = make([]uint64, n)
	}

	return s
}

func (s *Bitmap) Set(i int) {
	i, j := s.ij(i)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s *Bitmap) Clear(i int) {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

func (s *Bitmap) IsSet(i int) bool {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

// FillSet sets [l, r).
func (s *Bitmap) FillSet(l, r int) {
	for i := l; i < r; i++ {
		s.Set(i)
	}
}

func (s *Bitmap) AndNot(x Bitmap) {
	for i, x := range x.b {
		if i == len(s.b) {
			break
		}

		s.b[i] &^= x
	}
}

// Size is the number of elements.
func (s *Bitmap) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

// Range calls f for elements in ascending order until it returns false.
func (s *Bitmap) Range(f func(i int) bool) {
	for i, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(i*64 + j) {
				return
			}
		}
	}
}

func (s *Bitmap) Last() int {
	for i := len(s.b) - 1; i >= 0; i-- {
		if s.b[i] == 0 {
			continue
		}

		return i*64 + 63 - bits.LeadingZeros64(s.b[i])
	}

	return -1
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(i int) bool {
		b = e.AppendInt(b, i)

		return true
	})

	return e.AppendBreak(b)
}

func (s *Bitmap) ij(pos int) (i int, j int) {
	return pos / 64, pos % 64
}

func (s *Bitmap) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
