package generator

import (
	"bufio"
	"io"
)

// Sink is the destination of a VEO. Signatures are written into space reserved
// earlier in the file, so the sink must be seekable; *os.File satisfies it.
type Sink interface {
	io.Writer
	io.Seeker
	io.Closer
}

// output buffers writes to a Sink and tracks the current offset.
type output struct {
	sink   Sink
	w      *bufio.Writer
	offset int64
}

func newOutput(sink Sink) *output {
	return &output{sink: sink, w: bufio.NewWriterSize(sink, 64*1024)}
}

func (o *output) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.offset += int64(n)
	return n, err
}

// Offset is the position the next Write will occupy.
func (o *output) Offset() int64 { return o.offset }

// OverwriteAt replaces len(p) bytes at off and restores the write position.
func (o *output) OverwriteAt(off int64, p []byte) error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if _, err := o.sink.Seek(off, io.SeekStart); err != nil {
		return err
	}
	if _, err := o.sink.Write(p); err != nil {
		return err
	}
	_, err := o.sink.Seek(o.offset, io.SeekStart)
	return err
}

// Close flushes buffered output and closes the sink.
func (o *output) Close() error {
	ferr := o.w.Flush()
	cerr := o.sink.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// discard closes the sink without flushing buffered output.
func (o *output) discard() error {
	o.w.Reset(io.Discard)
	return o.sink.Close()
}
