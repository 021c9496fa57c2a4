package splat

// FrameBuffer is one of the presenter's two render destinations. The
// presenter's background worker is the only writer; the render loop reads
// whichever buffer Presenter.Active returns and never the other one.
type FrameBuffer interface {
	// Reset prepares the buffer for a new frame, releasing or reallocating
	// backing storage as needed.
	Reset() error

	// Upload replaces the buffer's contents with the frame's points.
	Upload(frame *Frame) error
}

// MemoryBuffer is the default FrameBuffer: it holds a reference to the
// decoded frame for hosts that consume points directly. GPU-backed hosts
// substitute their own implementation via Options.Buffers.
type MemoryBuffer struct {
	frame *Frame
}

func (b *MemoryBuffer) Reset() error {
	b.frame = nil
	return nil
}

func (b *MemoryBuffer) Upload(frame *Frame) error {
	b.frame = frame
	return nil
}

// Frame returns the uploaded frame, nil while the buffer is empty.
func (b *MemoryBuffer) Frame() *Frame { return b.frame }
