package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"rpcgolden/internal/jsonrpc"
	"rpcgolden/pkg/logging"
)

// cancelWriteTimeout bounds sending the cancel notification after a read timeout.
const cancelWriteTimeout = time.Second

// Exchange writes request to conn and reads the response.
//
// The response is read in DefaultBufferSize chunks; a chunk shorter than the
// buffer, or EOF, ends it. When readTimeout elapses first, a cancel
// notification is sent to the server and ErrReadTimeout is returned together
// with whatever was read so far. Cancelling ctx aborts the exchange.
func Exchange(ctx context.Context, conn net.Conn, request []byte, readTimeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	// Unblock pending I/O when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(request); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	logging.Debug(subsystem, "Sent %d byte request to %s", len(request), conn.RemoteAddr())

	var response bytes.Buffer
	chunk := make([]byte, DefaultBufferSize)
	for {
		n, err := conn.Read(chunk)
		response.Write(chunk[:n])

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return response.Bytes(), ctxErr
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				sendCancel(conn)
				return response.Bytes(), fmt.Errorf("%w after %v (%d bytes received)", ErrReadTimeout, readTimeout, response.Len())
			}
			return response.Bytes(), fmt.Errorf("failed to read response: %w", err)
		}

		if n < len(chunk) {
			break
		}
	}

	logging.Debug(subsystem, "Received %d byte response from %s", response.Len(), conn.RemoteAddr())
	return response.Bytes(), nil
}

// sendCancel makes a best-effort attempt to tell the server to abandon the request.
func sendCancel(conn net.Conn) {
	payload, err := jsonrpc.EncodeCancel()
	if err != nil {
		logging.Warn(subsystem, "Failed to encode cancel notification: %v", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(cancelWriteTimeout))
	if _, err := conn.Write(payload); err != nil {
		logging.Debug(subsystem, "Failed to send cancel notification: %v", err)
	}
}
