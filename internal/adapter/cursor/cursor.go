// Package cursor contains the default [domain.Cursor] implementation.
package cursor

import (
	"context"
	"errors"
	"slices"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/mqlopt/pkg/ctxsync"
)

var errExhausted = errors.New("called Scan on an exhausted cursor")

// Cursor implements domain.Cursor.
type Cursor struct {
	data      []domain.Document
	ctx       context.Context
	mu        *ctxsync.Mutex
	dec       domain.Decoder
	started   bool
	closed    bool
	storedErr error
}

// NewCursor returns a new implementation of Cursor. The cursor stops yielding
// documents once ctx is done.
func NewCursor(ctx context.Context, dt []domain.Document, options ...domain.CursorOption) (domain.Cursor, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	opts := domain.CursorOptions{
		Decoder: decoder.NewDecoder(),
	}
	for _, option := range options {
		option(&opts)
	}

	return &Cursor{
		data: slices.Clone(dt),
		ctx:  ctx,
		mu:   ctxsync.NewMutex(),
		dec:  opts.Decoder,
	}, nil
}

// Err implements domain.Cursor.
func (c *Cursor) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storedErr
}

// Scan implements domain.Cursor.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	innerCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-ctx.Done():
			cancel(context.Cause(ctx))
		case <-c.ctx.Done():
			cancel(context.Cause(c.ctx))
		case <-innerCtx.Done():
		}
	}()
	if err := c.ctx.Err(); err != nil {
		return err
	}
	if err := c.mu.LockWithContext(innerCtx); err != nil {
		return context.Cause(innerCtx)
	}
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrCursorClosed
	}
	if c.storedErr != nil {
		return c.storedErr
	}
	if !c.started {
		return domain.ErrScanBeforeNext
	}
	if len(c.data) == 0 {
		return errExhausted
	}
	if err := innerCtx.Err(); err != nil {
		return context.Cause(innerCtx)
	}
	return c.dec.Decode(c.data[0], target)
}

// Close implements domain.Cursor.
func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrCursorClosed
	}
	c.closed = true
	c.data = nil
	return nil
}

// Next implements domain.Cursor.
func (c *Cursor) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.storedErr = domain.ErrCursorClosed
		return false
	}
	if err := c.ctx.Err(); err != nil {
		c.storedErr = err
		return false
	}
	if len(c.data) == 0 {
		return false
	}
	if c.started {
		c.data = c.data[1:]
	}
	c.started = true
	return len(c.data) > 0
}
