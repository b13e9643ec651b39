package pagelog

// Log is an ordered chain of pages with a permanent sentinel head node, so
// the chain is never structurally empty: head.next is the first real page.
// All mutation is expected to happen under the owning flow's mutex; Log
// itself does no locking.
type Log struct {
	head      *page // sentinel, never holds data
	tail      *page
	pageSize  int
	maxPages  int
	numPages  int
}

// New creates a Log with a single empty page already allocated, matching
// the construction-time guarantee that the first append never needs to
// allocate before it can make progress.
func New(pageSize, maxPages int) *Log {
	sentinel := &page{}
	first := newPage(pageSize)
	sentinel.next = first

	return &Log{
		head:     sentinel,
		tail:     first,
		pageSize: pageSize,
		maxPages: maxPages,
		numPages: 1,
	}
}

// Append copies up to len(src) bytes into the log, allocating additional
// pages as needed up to maxPages, or maxPages+1 while the head page is
// partly consumed, so the bytes already read from the head page can be
// written again before that page is drained. It returns the number of
// bytes actually appended; a short return means the page limit was reached
// before src was exhausted. The caller is responsible for clamping src to
// the flow's free_bytes before calling, per the capacity invariant.
func (l *Log) Append(src []byte) int {
	written := 0

	for written < len(src) {
		if l.tail.full() {
			limit := l.maxPages
			if l.head.next.cursor > 0 {
				limit++
			}
			if l.numPages >= limit {
				break
			}
			p := newPage(l.pageSize)
			l.tail.next = p
			l.tail = p
			l.numPages++
		}

		n := copy(l.tail.data[l.tail.fill:], src[written:])
		l.tail.fill += n
		written += n
	}

	return written
}

// Consume copies up to len(dst) bytes out of the log starting at the head,
// unlinking and freeing any page fully drained in the process. It returns
// the number of bytes actually copied, which is min(len(dst), valid bytes).
func (l *Log) Consume(dst []byte) int {
	read := 0

	for read < len(dst) {
		head := l.head.next
		if head == nil || head.unread() == 0 {
			break
		}

		n := copy(dst[read:], head.data[head.cursor:head.fill])
		head.cursor += n
		read += n

		if head.drained() {
			l.unlinkHead()
		}
	}

	return read
}

// unlinkHead removes a fully drained head page. If it was the only page,
// a fresh empty page is installed so the log is never left without a
// tail to append into.
func (l *Log) unlinkHead() {
	drained := l.head.next
	l.head.next = drained.next
	l.numPages--

	if l.head.next == nil {
		p := newPage(l.pageSize)
		l.head.next = p
		l.tail = p
		l.numPages = 1
	}
}

// ValidBytes returns the sum of unread bytes across every page in the
// chain. It is provided for invariant checks in tests; FlowState keeps its
// own running counter rather than calling this on the hot path.
func (l *Log) ValidBytes() int {
	total := 0
	for p := l.head.next; p != nil; p = p.next {
		total += p.unread()
	}
	return total
}

// NumPages reports the number of pages currently chained, for tests.
func (l *Log) NumPages() int {
	return l.numPages
}
