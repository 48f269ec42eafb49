package ioutil

import (
	"io"
	"sync/atomic"
)

// CountingWriter counts the bytes written through it.
type CountingWriter struct {
	wr      io.Writer
	written atomic.Int64
}

func NewCountingWriter(wr io.Writer) *CountingWriter {
	return &CountingWriter{wr: wr}
}

func (c *CountingWriter) Write(buf []byte) (n int, err error) {
	n, err = c.wr.Write(buf)
	if n > 0 {
		c.written.Add(int64(n))
	}
	return
}

func (c *CountingWriter) Written() int64 {
	return c.written.Load()
}
