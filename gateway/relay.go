package gateway

import (
	"io"
	"net/http"

	"go.uber.org/zap"
)

const relayBufferSize = 32 * 1024

// Relay copies src to dst, flushing after every write so each SSE frame
// reaches the caller as soon as the runtime produces it. It stops at source
// EOF or the first sink error and returns the number of bytes written.
func Relay(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, relayBufferSize)
	flusher, _ := dst.(http.Flusher)

	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			total += int64(written)
			if writeErr != nil {
				return total, writeErr
			}
			if written < n {
				return total, io.ErrShortWrite
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

// countingReader counts the bytes the Lambda runtime drains from the stream
// and logs the total when the stream is closed.
type countingReader struct {
	io.ReadCloser
	logger *zap.Logger
	n      int64
	err    error
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

func (r *countingReader) Close() error {
	if r.err != nil {
		r.logger.Warn("Relay stopped", zap.Int64("bytes", r.n), zap.Error(r.err))
	} else {
		r.logger.Debug("Relay finished", zap.Int64("bytes", r.n))
	}
	return r.ReadCloser.Close()
}
