// Package paginate packs player entries into display blocks that stay under a
// character ceiling.
package paginate

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPageSize = 6
	DefaultCeiling  = 1024

	// Placeholder stands in for an empty first block; chat surfaces reject
	// empty fields.
	Placeholder = "\u200b"
)

type Block struct {
	Entries []string
}

// Text joins the entries one per line, or returns Placeholder when empty.
func (b Block) Text() string {
	if len(b.Entries) == 0 {
		return Placeholder
	}
	return strings.Join(b.Entries, "\n")
}

func (b Block) Len() int {
	return utf8.RuneCountInString(b.Text())
}

type Paginator struct {
	PageSize int
	Ceiling  int
}

func New(pageSize, ceiling int) *Paginator {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if ceiling < 1 {
		ceiling = DefaultCeiling
	}
	return &Paginator{PageSize: pageSize, Ceiling: ceiling}
}

// FieldCount is the number of blocks used for p entries at page size s.
func FieldCount(p, s int) int {
	if p <= 0 || s <= 0 {
		return 1
	}
	return (p + s - 1) / s
}

// Paginate splits entries into blocks. Every entry appears exactly once.
// A block exceeds the ceiling only when a single entry alone does.
func (p *Paginator) Paginate(entries []string) []Block {
	sorted := append([]string(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(sorted[i]), utf8.RuneCountInString(sorted[j])
		if li != lj {
			return li > lj
		}
		return sorted[i] < sorted[j]
	})

	size := p.PageSize
	for {
		blocks := place(sorted, size)
		if size <= 1 || fits(blocks, p.Ceiling) {
			return blocks
		}
		size /= 2
	}
}

// place deals entries round-robin. With a remainder r, the first
// fieldCount*r placements cover every block and the rest skip the last one,
// so all blocks but the last hold exactly size entries.
func place(entries []string, size int) []Block {
	n := len(entries)
	fields := FieldCount(n, size)
	blocks := make([]Block, fields)

	rem := n % size
	wide := n
	if rem != 0 {
		wide = fields * rem
	}
	for i, e := range entries {
		var idx int
		if i < wide {
			idx = i % fields
		} else {
			idx = (i - wide) % (fields - 1)
		}
		blocks[idx].Entries = append(blocks[idx].Entries, e)
	}
	return blocks
}

func fits(blocks []Block, ceiling int) bool {
	for _, b := range blocks {
		if b.Len() > ceiling {
			return false
		}
	}
	return true
}
