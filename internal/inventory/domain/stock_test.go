package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSumsAndSorts(t *testing.T) {
	got := Merge([]Demand{
		{ProductID: "c", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "c", Quantity: 3},
	})

	assert.Equal(t, []Demand{
		{ProductID: "a", Quantity: 2},
		{ProductID: "c", Quantity: 4},
	}, got)
	assert.EqualValues(t, 6, Reservation{Lines: got}.Units())
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil))
}
