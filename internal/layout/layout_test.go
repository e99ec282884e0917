package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripIndex(t *testing.T) {
	cases := []struct {
		name  string
		strip Strip
		in    int
		want  int
	}{
		{"identity", Strip{Count: 10}, 3, 3},
		{"reverse", Strip{Count: 10, Reverse: true}, 0, 9},
		{"offset wraps", Strip{Count: 10, Offset: 8}, 4, 2},
		{"negative offset", Strip{Count: 10, Offset: -1}, 0, 9},
		{"reverse and offset", Strip{Count: 10, Reverse: true, Offset: 2}, 0, 7},
		{"no count", Strip{}, 5, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.strip.Index(c.in))
		})
	}
}

func TestStripIndexIsPermutation(t *testing.T) {
	s := Strip{Count: 17, Reverse: true, Offset: 5}
	seen := map[int]bool{}
	for i := 0; i < s.Count; i++ {
		p := s.Index(i)
		assert.False(t, seen[p], "physical index %d hit twice", p)
		seen[p] = true
	}
	assert.Len(t, seen, s.Count)
}
