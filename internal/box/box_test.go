package box_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkotrev/piejam-engine-go/internal/box"
)

func TestBox_GetReturnsWrappedValue(t *testing.T) {
	b := box.New([]int{1, 2, 3})
	assert.Equal(t, []int{1, 2, 3}, b.Get())
}

func TestBox_SetReplacesWholesale(t *testing.T) {
	b := box.New(1)
	before := b

	b.Set(2)

	assert.Equal(t, 1, before.Get(), "original copy must be unaffected by Set on the later copy")
	assert.Equal(t, 2, b.Get())
}

func TestBox_LockDeepCopiesUntilClose(t *testing.T) {
	b := box.New([]int{1, 2, 3})
	reader := b // independent copy, should see pre-lock value until Close

	lock := b.Lock()
	*lock.Value() = append(*lock.Value(), 4)

	assert.Equal(t, []int{1, 2, 3}, reader.Get(), "readers must not see the mutation before Close")

	lock.Close()

	assert.Equal(t, []int{1, 2, 3, 4}, b.Get())
	assert.Equal(t, []int{1, 2, 3}, reader.Get(), "a copy taken before Close keeps pointing at the old value")
}

func TestBox_SamePointerFastPath(t *testing.T) {
	a := box.New(42)
	b := a

	assert.True(t, a.SamePointer(b))

	b.Set(42)
	assert.False(t, a.SamePointer(b), "Set always replaces the pointer, even with an equal value")
	assert.True(t, box.Equal(a, b), "but structural equality still holds")
}

func TestEqual_FallsBackToStructuralCompare(t *testing.T) {
	a := box.New("x")
	b := box.New("x")
	c := box.New("y")

	assert.True(t, box.Equal(a, b))
	assert.False(t, box.Equal(a, c))
}
