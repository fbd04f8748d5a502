package runner

// tailBuffer captures combined process output up to a byte limit, keeping
// the most recent bytes. It is wired as both stdout and stderr of the child
// process; os/exec funnels both streams through a single goroutine when they
// share a writer, so no locking is needed.
type tailBuffer struct {
	limit     int
	buf       []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.limit {
		if n > b.limit || len(b.buf) > 0 {
			b.truncated = true
		}
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	if overflow := len(b.buf) + n - b.limit; overflow > 0 {
		b.buf = b.buf[overflow:]
		b.truncated = true
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

// String returns the captured tail, prefixed with a marker when older
// output was dropped.
func (b *tailBuffer) String() string {
	if b.truncated {
		return "[...output truncated...]\n" + string(b.buf)
	}
	return string(b.buf)
}

func (b *tailBuffer) Truncated() bool { return b.truncated }
