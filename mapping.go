package fbtft

import (
	"errors"
	"io"
	"sync/atomic"
)

// ErrUnmapped is returned by View methods after Unmap.
var ErrUnmapped = errors.New("fbtft: view is unmapped")

// View is a shared, zero-copy window on a Buffer's pixel storage.
type View struct {
	buf     *Buffer
	pix     []byte
	closed  atomic.Bool
	exposed atomic.Bool
}

// Map returns a view of the first length bytes of the buffer. Only offset 0
// and 0 <= length <= Size are accepted; anything else fails with
// KindInvalidArgument and leaves the buffer untouched.
func (b *Buffer) Map(offset, length int) (*View, error) {
	if offset != 0 {
		return nil, invalidArgument("map: offset %d, only 0 is supported", offset)
	}
	if length < 0 || length > b.meta.Size {
		return nil, invalidArgument("map: length %d exceeds buffer size %d", length, b.meta.Size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.img.Pix == nil {
		return nil, invalidArgument("map: buffer released")
	}
	return &View{
		buf: b,
		pix: b.img.Pix[:length:length],
	}, nil
}

// Len is the view size in bytes.
func (v *View) Len() int {
	return len(v.pix)
}

// Bytes returns the shared storage. Writes through the returned slice are
// detected by comparing against the last flushed frame until the view is
// unmapped. The slice must not be used after Unmap.
func (v *View) Bytes() []byte {
	if v.closed.Load() {
		return nil
	}
	if v.exposed.CompareAndSwap(false, true) {
		v.buf.views.Add(1)
	}
	return v.pix
}

// Touch marks the buffer dirty without waiting for the frame comparison.
func (v *View) Touch() {
	if !v.closed.Load() {
		v.buf.touch()
	}
}

// WriteAt copies p into the view at off and marks the buffer dirty.
func (v *View) WriteAt(p []byte, off int64) (n int, err error) {
	if v.closed.Load() {
		return 0, ErrUnmapped
	}
	if off < 0 || off > int64(len(v.pix)) {
		return 0, invalidArgument("map: write offset %d outside view of %d bytes", off, len(v.pix))
	}

	v.buf.mu.Lock()
	if v.buf.img.Pix != nil {
		n = copy(v.pix[off:], p)
	}
	v.buf.mu.Unlock()

	if n > 0 {
		v.buf.touch()
	}
	if n < len(p) {
		err = io.ErrShortWrite
	}
	return
}

// ReadAt copies from the view at off into p.
func (v *View) ReadAt(p []byte, off int64) (n int, err error) {
	if v.closed.Load() {
		return 0, ErrUnmapped
	}
	if off < 0 {
		return 0, invalidArgument("map: read offset %d", off)
	}
	if off >= int64(len(v.pix)) {
		return 0, io.EOF
	}

	v.buf.mu.Lock()
	if v.buf.img.Pix != nil {
		n = copy(p, v.pix[off:])
	}
	v.buf.mu.Unlock()

	if n < len(p) {
		err = io.EOF
	}
	return
}

// Unmap detaches the view. The buffer storage is not affected; calling
// Unmap twice is a no-op.
func (v *View) Unmap() error {
	if v.closed.CompareAndSwap(false, true) && v.exposed.Load() {
		v.buf.unmapView()
	}
	return nil
}

var (
	_ io.WriterAt = (*View)(nil)
	_ io.ReaderAt = (*View)(nil)
)
