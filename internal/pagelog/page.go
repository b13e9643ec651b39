// Package pagelog implements the paged byte log that backs a single flow:
// an ordered chain of fixed-capacity pages supporting append at the tail
// and consume from the head.
package pagelog

// page is a single fixed-capacity buffer holding a contiguous slice of a
// flow's bytes. fill is the number of bytes written into data; cursor is
// the read position, always <= fill. Only the log's head page may have a
// non-zero cursor.
type page struct {
	data   []byte
	fill   int
	cursor int
	next   *page
}

func newPage(capacity int) *page {
	return &page{data: make([]byte, capacity)}
}

// free returns the number of bytes still writable into this page.
func (p *page) free() int {
	return len(p.data) - p.fill
}

// unread returns the number of bytes not yet consumed from this page.
func (p *page) unread() int {
	return p.fill - p.cursor
}

// full reports whether the page has no remaining write capacity.
func (p *page) full() bool {
	return p.fill == len(p.data)
}

// drained reports whether every written byte has been consumed.
func (p *page) drained() bool {
	return p.cursor == p.fill && p.full()
}
