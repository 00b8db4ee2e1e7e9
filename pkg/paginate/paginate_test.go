package paginate

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(n, width int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%0*d", width, i)
	}
	return out
}

func flatten(blocks []Block) []string {
	var out []string
	for _, b := range blocks {
		out = append(out, b.Entries...)
	}
	sort.Strings(out)
	return out
}

func TestThirteenEntriesMakeThreeBlocks(t *testing.T) {
	p := New(6, 10000)
	blocks := p.Paginate(entries(13, 4))

	require.Len(t, blocks, 3)
	assert.Len(t, blocks[0].Entries, 6)
	assert.Len(t, blocks[1].Entries, 6)
	assert.Len(t, blocks[2].Entries, 1)
}

func TestRetriesWithHalfPageSize(t *testing.T) {
	in := entries(13, 10)
	// six entries of ten runes joined by newlines is 65 runes; three is 32
	p := New(6, 40)
	blocks := p.Paginate(in)

	require.Len(t, blocks, FieldCount(13, 3))
	for _, b := range blocks {
		assert.LessOrEqual(t, b.Len(), 40)
		assert.LessOrEqual(t, len(b.Entries), 3)
	}
	assert.Equal(t, flatten([]Block{{Entries: in}}), flatten(blocks))
}

func TestUnionEqualsInput(t *testing.T) {
	for _, n := range []int{0, 1, 5, 6, 7, 12, 13, 31, 100} {
		for _, size := range []int{1, 2, 3, 6, 10} {
			in := make([]string, n)
			for i := range in {
				in[i] = strings.Repeat("x", i%7+1) + fmt.Sprint(i%3)
			}
			blocks := New(size, 10000).Paginate(in)

			want := append([]string(nil), in...)
			sort.Strings(want)
			got := flatten(blocks)
			if n == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, want, got, "n=%d size=%d", n, size)
			}
			assert.Len(t, blocks, FieldCount(n, size), "n=%d size=%d", n, size)
		}
	}
}

func TestRemainderIsolatedInLastBlock(t *testing.T) {
	blocks := New(5, 10000).Paginate(entries(17, 3))
	require.Len(t, blocks, 4)
	for _, b := range blocks[:3] {
		assert.Len(t, b.Entries, 5)
	}
	assert.Len(t, blocks[3].Entries, 2)
}

func TestLongestEntriesFirst(t *testing.T) {
	blocks := New(2, 10000).Paginate([]string{"a", "ccc", "bb", "dddd"})
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"dddd", "bb"}, blocks[0].Entries)
	assert.Equal(t, []string{"ccc", "a"}, blocks[1].Entries)
}

func TestEmptyInputRendersPlaceholder(t *testing.T) {
	blocks := New(6, 1024).Paginate(nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, Placeholder, blocks[0].Text())
}

func TestOversizedLoneEntryStopsAtOne(t *testing.T) {
	huge := strings.Repeat("y", 50)
	blocks := New(4, 20).Paginate([]string{huge, "a", "b"})

	require.Len(t, blocks, 3)
	for _, b := range blocks {
		require.Len(t, b.Entries, 1)
	}
	assert.Equal(t, huge, blocks[0].Entries[0])
}
