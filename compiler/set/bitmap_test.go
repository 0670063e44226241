package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmap(t *testing.T) {
	var s Bitmap

	assert.False(t, s.IsSet(3))
	assert.Equal(t, -1, s.Last())

	s.Set(3)
	s.Set(70)
	s.Set(200)

	assert.True(t, s.IsSet(70))
	assert.False(t, s.IsSet(71))
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 200, s.Last())

	s.Clear(70)
	s.Clear(1000)

	var l []int

	s.Range(func(i int) bool {
		l = append(l, i)
		return true
	})

	assert.Equal(t, []int{3, 200}, l)
}

func TestBitmapAndNot(t *testing.T) {
	s := MakeBitmap(10)
	s.FillSet(0, 10)

	var x Bitmap
	x.Set(2)
	x.Set(9)
	x.Set(500)

	s.AndNot(x)

	assert.Equal(t, 8, s.Size())
	assert.False(t, s.IsSet(2))
	assert.False(t, s.IsSet(9))
	assert.True(t, s.IsSet(8))

	var first []int

	s.Range(func(i int) bool {
		first = append(first, i)
		return len(first) < 2
	})

	assert.Equal(t, []int{0, 1}, first)
}
