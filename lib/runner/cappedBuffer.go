package runner

import "bytes"

// cappedBuffer accumulates writes up to a byte limit and silently discards
// the rest, so a runaway program cannot grow the captured output unbounded.
type cappedBuffer struct {
	buf *bytes.Buffer
	cap int64
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{buf: &bytes.Buffer{}, cap: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	remaining := c.cap - int64(c.buf.Len())
	if remaining <= 0 {
		// Report the bytes as written so the child keeps running.
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		c.buf.Write(p[:remaining])
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}
