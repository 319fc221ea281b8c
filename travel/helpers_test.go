// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package travel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in, out string
		valid   bool
	}{
		{"fr", "FR", true},
		{"FR", "FR", true},
		{"fR", "FR", true},
		{"", "", false},
		{"F", "", false},
		{"FRA", "", false},
		{"F1", "", false},
		{"é", "", false},
	}
	for _, test := range tests {
		out, err := NormalizeCode(test.in)
		if test.valid {
			if assert.NoError(t, err, test.in) {
				assert.Equal(t, test.out, out)
			}
		} else {
			assert.Equal(t, ErrInvalidCode{Code: test.in}, err, test.in)
		}
	}
}

func TestValidateYears(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateYears(nil, now))
	assert.NoError(t, ValidateYears([]int{1900, 2000, 2024}, now))
	assert.Equal(t, ErrInvalidYear{Year: 1899}, ValidateYears([]int{2000, 1899}, now))
	assert.Equal(t, ErrInvalidYear{Year: 2025}, ValidateYears([]int{2025}, now))
}

func TestCanonicalYears(t *testing.T) {
	assert.Equal(t, []int{}, CanonicalYears(nil))
	assert.Equal(t, []int{2011}, CanonicalYears([]int{2011, 2011}))
	assert.Equal(t, []int{1999, 2011, 2012}, CanonicalYears([]int{2012, 1999, 2011, 2012}))

	in := []int{3, 1, 2}
	CanonicalYears(in)
	assert.Equal(t, []int{3, 1, 2}, in, "input should not be modified")
}

func TestUnionYears(t *testing.T) {
	assert.Equal(t, []int{2011, 2012}, UnionYears([]int{2011}, []int{2012}))
	assert.Equal(t, []int{2011, 2012}, UnionYears([]int{2012, 2011}, []int{2011}))
	assert.Equal(t, []int{}, UnionYears(nil, nil))
}

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	in := time.Date(2024, time.June, 1, 12, 30, 45, 999, loc)
	assert.Equal(t, time.Date(2024, time.June, 1, 11, 30, 45, 0, time.UTC), Timestamp(in))
}
