package stream

import (
	"log/slog"
	"time"

	"github.com/udisondev/silkgo/internal/protocol"
)

// Option configures a Stream.
type Option func(*Stream)

// WithKeepAliveInterval sets the keep-alive period used after authentication.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.keepAlive.Store(int64(d))
		}
	}
}

// WithCodec sets the frame codec (length mask of the target server revision).
func WithCodec(c protocol.Codec) Option {
	return func(s *Stream) {
		s.codec = c
	}
}

// WithLogger sets the logger. Frame traces go to Debug.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Stream) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithRecvQueueSize bounds the number of packets buffered for Read.
func WithRecvQueueSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.recvSize = n
		}
	}
}

// WithWriteTimeout sets the per-frame write deadline. Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Stream) {
		if d >= 0 {
			s.writeTimeout = d
		}
	}
}
