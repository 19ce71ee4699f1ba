package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/crypto"
	"github.com/udisondev/silkgo/internal/handshake"
	"github.com/udisondev/silkgo/internal/protocol"
)

var errLocalClose = fmt.Errorf("closed locally: %w", protocol.ErrClosed)

// Stream is a client session over one duplex connection.
//
// A single read loop drains the connection, feeds 0x5000 frames to the
// handshake and queues everything else for Read. Write may be called from
// any goroutine; frames reach the wire in the order writers enter the send
// critical section.
type Stream struct {
	conn  net.Conn
	codec protocol.Codec
	log   *slog.Logger
	obs   Observer

	keepAlive    atomic.Int64
	intervalCh   chan time.Duration
	writeTimeout time.Duration
	recvSize     int

	// state хранит handshake.State; меняется только под writeMu.
	state atomic.Int32

	// writeMu сериализует counter, checksum, смену ключа и запись в conn.
	writeMu  sync.Mutex
	counter  *crypto.SecurityCounter
	checksum *crypto.Checksum
	cipher   *crypto.BlowfishCipher
	pool     *protocol.BufPool

	recvCh   chan protocol.Packet
	authDone chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeCh   chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	err     error
	group   *errgroup.Group
	started time.Time
}

// New wraps conn. Nothing is read until Authenticate is called.
func New(conn net.Conn, opts ...Option) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		conn:         conn,
		codec:        protocol.DefaultCodec(),
		log:          slog.Default(),
		obs:          NoopObserver,
		intervalCh:   make(chan time.Duration, 1),
		writeTimeout: constants.DefaultWriteTimeout,
		recvSize:     constants.DefaultRecvQueueSize,
		pool:         protocol.NewBufPool(constants.DefaultSendBufSize),
		authDone:     make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		closeCh:      make(chan struct{}),
	}
	s.keepAlive.Store(int64(constants.DefaultKeepAliveInterval))

	for _, opt := range opts {
		opt(s)
	}

	s.recvCh = make(chan protocol.Packet, s.recvSize)
	s.log = s.log.With("remote", conn.RemoteAddr().String())
	return s
}

// State returns the handshake state.
func (s *Stream) State() handshake.State {
	return handshake.State(s.state.Load())
}

// Err returns the error that aborted the connection, or nil while it is alive.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the connection is aborted or closed.
func (s *Stream) Done() <-chan struct{} {
	return s.closeCh
}

// KeepAliveInterval returns the current keep-alive period.
func (s *Stream) KeepAliveInterval() time.Duration {
	return time.Duration(s.keepAlive.Load())
}

// SetKeepAliveInterval changes the keep-alive period, also after authentication.
func (s *Stream) SetKeepAliveInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.keepAlive.Store(int64(d))
	// Оставляем в канале только последнее значение.
	select {
	case <-s.intervalCh:
	default:
	}
	select {
	case s.intervalCh <- d:
	default:
	}
}

// Authenticate starts the read loop and blocks until the handshake reaches DONE.
// A handshake failure or ctx cancellation aborts the connection.
func (s *Stream) Authenticate(ctx context.Context) error {
	if err := s.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	next, err := handshake.Start(s.State())
	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("authenticate: %w", err)
	}
	s.state.Store(int32(next))
	s.writeMu.Unlock()

	g, gctx := errgroup.WithContext(s.ctx)
	s.mu.Lock()
	s.group = g
	s.started = time.Now()
	s.mu.Unlock()

	s.log.Debug("handshake started", "state", next)

	g.Go(func() error {
		err := s.readLoop(gctx)
		if err != nil {
			s.abort(err)
		}
		return err
	})
	g.Go(func() error {
		return s.keepAliveLoop(gctx)
	})

	select {
	case <-s.authDone:
		return nil
	case <-s.closeCh:
		select {
		case <-s.authDone:
			return nil
		default:
		}
		err := s.Err()
		s.obs.Handshake(handshakeResult(err), time.Since(s.started))
		return fmt.Errorf("authenticate: %w", err)
	case <-ctx.Done():
		s.abort(ctx.Err())
		s.obs.Handshake(HandshakeResultError, time.Since(s.started))
		return fmt.Errorf("authenticate: %w", ctx.Err())
	}
}

// Read blocks until a non-handshake packet is available and returns the oldest one.
// Packets received before the connection closed are still returned in order;
// the connection error is reported once the queue is empty.
func (s *Stream) Read(ctx context.Context) (protocol.Packet, error) {
	select {
	case p := <-s.recvCh:
		return p, nil
	default:
	}

	select {
	case p := <-s.recvCh:
		return p, nil
	case <-s.closeCh:
		// read loop мог положить пакет до abort.
		select {
		case p := <-s.recvCh:
			return p, nil
		default:
			return protocol.Packet{}, s.Err()
		}
	case <-ctx.Done():
		return protocol.Packet{}, ctx.Err()
	}
}

// Write frames p and sends it. Encrypted packets require a completed handshake
// and a payload length that is a multiple of 8.
//
// Misuse (a handshake id, a write before the setup frame, an oversized payload,
// encryption before authentication or a bad block length) is returned without
// touching the connection. A failed write to the connection aborts it.
func (s *Stream) Write(p protocol.Packet) error {
	if err := s.Err(); err != nil {
		return err
	}
	if p.ID == constants.MsgHandshake {
		return fmt.Errorf("%w: application write of handshake frame", protocol.ErrProtocolViolation)
	}

	s.writeMu.Lock()
	err := s.writeLocked(p)
	s.writeMu.Unlock()

	var werr *writeError
	if errors.As(err, &werr) {
		s.abort(werr.err)
		return werr.err
	}
	return err
}

// writeError marks failures of the connection itself, after which the frame
// stream is out of sync with the server.
type writeError struct {
	err error
}

func (e *writeError) Error() string { return e.err.Error() }

func (e *writeError) Unwrap() error { return e.err }

// Close closes the connection and waits for the background loops to exit.
// Blocked Read and Authenticate calls return ErrClosed.
func (s *Stream) Close() error {
	s.abort(errLocalClose)

	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g != nil {
		_ = g.Wait()
	}
	return nil
}

// writeLocked must be called with writeMu held.
func (s *Stream) writeLocked(p protocol.Packet) error {
	if s.counter == nil || s.checksum == nil {
		return fmt.Errorf("%w: write of [%04X] before handshake setup", protocol.ErrProtocolViolation, p.ID)
	}
	if len(p.Payload) > s.codec.MaxPayload() {
		return fmt.Errorf("%w: payload of [%04X] is %d bytes, max %d", protocol.ErrFraming, p.ID, len(p.Payload), s.codec.MaxPayload())
	}

	if p.Encrypted {
		if s.State() != handshake.StateDone {
			return fmt.Errorf("%w: encrypted write of [%04X] before authentication", protocol.ErrProtocolViolation, p.ID)
		}
		enc := bytes.Clone(p.Payload)
		if err := s.cipher.Encrypt(enc, 0, len(enc)); err != nil {
			return fmt.Errorf("encrypting [%04X]: %w", p.ID, err)
		}
		p.Payload = enc
	}

	// Counter сдвигается ровно один раз на отправленный фрейм.
	count := s.counter.Next()
	buf := s.pool.Get()
	buf, err := s.codec.Encode(buf, p, count, s.checksum)
	defer s.pool.Put(buf)
	if err != nil {
		return &writeError{err: fmt.Errorf("encoding [%04X]: %w", p.ID, err)}
	}

	s.trace("C->S", protocol.ParseHeader(buf))

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return &writeError{err: fmt.Errorf("setting write deadline: %w", err)}
		}
	}
	if _, err := s.conn.Write(buf); err != nil {
		return &writeError{err: fmt.Errorf("writing [%04X]: %w", p.ID, err)}
	}

	s.obs.Frame(DirectionOut, p.ID, len(buf))
	return nil
}

func (s *Stream) readLoop(ctx context.Context) error {
	var secrets handshake.Secrets

	for {
		h, payload, err := s.codec.ReadFrame(s.conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		s.trace("S->C", h)
		s.obs.Frame(DirectionIn, h.ID, constants.FrameHeaderSize+len(payload))

		if h.Encrypted() {
			if s.State() != handshake.StateDone {
				return fmt.Errorf("%w: encrypted frame [%04X] before authentication", protocol.ErrProtocolViolation, h.ID)
			}
			// cipher меняется только этой горутиной, читать можно без блокировки.
			if err := s.cipher.Decrypt(payload, 0, len(payload)); err != nil {
				return fmt.Errorf("%w: decrypting [%04X]: %w", protocol.ErrFraming, h.ID, err)
			}
		}

		pkt, err := s.codec.Decode(h, payload)
		if err != nil {
			return err
		}

		if pkt.ID == constants.MsgHandshake {
			if err := s.handleHandshake(pkt.Payload, &secrets); err != nil {
				return err
			}
			continue
		}

		select {
		case s.recvCh <- pkt:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Stream) handleHandshake(payload []byte, secrets *handshake.Secrets) error {
	from := s.State()
	tr, err := handshake.Advance(from, *secrets, payload)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	// Установка ключей и ответ атомарны относительно Write.
	s.writeMu.Lock()
	if tr.Checksum != nil {
		s.checksum = tr.Checksum
		s.counter = tr.Counter
	}
	if tr.Cipher != nil {
		s.cipher = tr.Cipher
	}
	err = s.writeLocked(tr.Reply)
	if err == nil {
		s.state.Store(int32(tr.State))
	}
	s.writeMu.Unlock()

	*secrets = tr.Secrets
	if err != nil {
		return fmt.Errorf("handshake reply: %w", err)
	}

	s.log.Debug("handshake transition", "from", from, "to", tr.State)
	if tr.State == handshake.StateDone {
		s.mu.Lock()
		elapsed := time.Since(s.started)
		s.mu.Unlock()

		s.log.Info("handshake completed", "elapsed", elapsed)
		s.obs.Handshake(HandshakeResultOK, elapsed)
		close(s.authDone)
	}
	return nil
}

func (s *Stream) keepAliveLoop(ctx context.Context) error {
	select {
	case <-s.authDone:
	case <-ctx.Done():
		return nil
	}

	ticker := time.NewTicker(s.KeepAliveInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Write(protocol.NewPacket(constants.MsgKeepAlive, nil)); err != nil {
				// Write уже закрыл соединение.
				return nil
			}
			s.obs.KeepAlive()
		case d := <-s.intervalCh:
			ticker.Reset(d)
		case <-ctx.Done():
			return nil
		}
	}
}

// trace logs a frame header the way packet captures show it: [len][id][count][crc].
func (s *Stream) trace(dir string, h protocol.Header) {
	if !s.log.Enabled(s.ctx, slog.LevelDebug) {
		return
	}
	s.log.Debug(dir,
		"len", fmt.Sprintf("%04X", h.LengthFlags),
		"id", fmt.Sprintf("%04X", h.ID),
		"count", fmt.Sprintf("%02X", h.Count),
		"crc", fmt.Sprintf("%02X", h.Checksum))
}

// abort latches err, closes the connection and wakes every waiter. Only the first call has effect.
func (s *Stream) abort(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		s.cancel()
		_ = s.conn.Close()

		reason := closeReason(err)
		s.obs.Close(reason)
		switch {
		case reason == CloseReasonLocal:
			s.log.Debug("stream closed")
		case errors.Is(err, protocol.ErrClosed):
			s.log.Info("connection closed by peer")
		default:
			s.log.Warn("connection aborted", "reason", reason, "error", err)
		}

		// Ожидающие Read/Authenticate просыпаются последними, когда ошибка уже видна.
		close(s.closeCh)
	})
}
