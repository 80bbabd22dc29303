package resource

import (
	"context"
	"io"
)

// Writer charges every write against the controller's IO limit.
type Writer struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewWriter wraps w. A nil controller passes writes through unthrottled.
func NewWriter(ctx context.Context, w io.Writer, rc *Controller) *Writer {
	return &Writer{ctx: ctx, w: w, rc: rc}
}

func (w *Writer) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}
