package main

import (
	"context"
	"io"
)

// contextReader returns ctx.Err() from Read as soon as ctx is done, even when
// the underlying reader is blocked. A read abandoned that way keeps its
// goroutine until the underlying reader returns; its bytes are dropped.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

type readResult struct {
	buf []byte
	err error
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	ch := make(chan readResult, 1)
	go func(n int) {
		buf := make([]byte, n)
		m, err := c.r.Read(buf)
		ch <- readResult{buf: buf[:m], err: err}
	}(len(p))

	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	case res := <-ch:
		return copy(p, res.buf), res.err
	}
}
