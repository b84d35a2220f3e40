package conn

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const copyBufferSize = 32 * 1024

var copyBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

// CopyBidirectional relays bytes between left and right until either side
// closes or the context is canceled, then closes both. If ioTimeout is
// non-zero it is applied as an absolute deadline to both connections.
func CopyBidirectional(ctx context.Context, left, right net.Conn, ioTimeout time.Duration) error {
	if ioTimeout > 0 {
		dl := time.Now().Add(ioTimeout)
		_ = left.SetDeadline(dl)
		_ = right.SetDeadline(dl)
	}

	var g errgroup.Group

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	// If the context is canceled, close both sides to unblock the copies.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	// Either direction finishing tears down the relay; half-open tunnels
	// are not kept alive.
	g.Go(func() error {
		err := copyPooled(left, right)
		closeBoth()
		return err
	})

	g.Go(func() error {
		err := copyPooled(right, left)
		closeBoth()
		return err
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		// One side finished and we closed the other to unblock it.
		return nil
	}
	return err
}

func copyPooled(dst io.Writer, src io.Reader) error {
	buf := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(buf)

	_, err := io.CopyBuffer(dst, src, *buf)
	return err
}
