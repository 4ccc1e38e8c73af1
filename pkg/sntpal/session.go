package sntpal

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AndrewLester/sntpal/internal/ntp"
	"github.com/AndrewLester/sntpal/pkg/civil"
)

var (
	ErrNotInitialized     = errors.New("session is not initialized")
	ErrRetriesExhausted   = errors.New("server did not respond")
	ErrShortResponse      = errors.New("response too short")
	ErrTimestampUnderflow = errors.New("timezone offset underflows timestamp")
	ErrBufferTooSmall     = errors.New("response buffer too small")
	ErrUnexpectedSource   = errors.New("response from unexpected source")
)

type State int

const (
	StateClosed State = iota
	StateRequesting
	StateAwaitingResponse
	StateRetrying
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateRetrying:
		return "retrying"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "closed"
	}
}

func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

type Status int

const (
	StatusContinue Status = iota
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "continue"
	}
}

// Session is one synchronization attempt against a single server. It is
// driven by repeated Poll calls from one goroutine and is not safe for
// concurrent use.
type Session struct {
	transport Transport
	base      *zap.Logger
	logger    *zap.Logger

	id            uuid.UUID
	server        netip.AddrPort
	localPort     uint16
	timezone      int
	epochYear     uint16
	retryCap      uint16
	pollsPerRetry uint16

	retryCount     uint16
	pollsSinceSend uint16

	request  [ntp.PacketSize]byte
	response []byte

	state       State
	initialized bool

	seconds  uint64 /* transmit seconds of the last response, UTC */
	dateTime civil.DateTime
}

func NewSession(transport Transport, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		transport: transport,
		base:      logger,
		logger:    logger,
	}
}

// Init prepares the session for a new attempt. buf is the response scratch
// buffer; a nil buf allocates one of cfg.BufferSize bytes. Any attempt in
// progress is abandoned.
func (s *Session) Init(cfg Config, buf []byte) error {
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	server, err := ParseServer(cfg.Server)
	if err != nil {
		return err
	}

	if buf == nil {
		buf = make([]byte, cfg.BufferSize)
	}

	if len(buf) < ntp.PacketSize {
		return fmt.Errorf("%w: %d bytes", ErrBufferTooSmall, len(buf))
	}

	if s.transport.State() != TransportClosed {
		s.transport.Close()
	}

	*s = Session{
		transport:     s.transport,
		base:          s.base,
		id:            uuid.New(),
		server:        server,
		localPort:     cfg.LocalPort,
		timezone:      cfg.Timezone,
		epochYear:     cfg.EpochYear,
		retryCap:      cfg.RetryCap,
		pollsPerRetry: cfg.PollsPerRetry,
		request:       ntp.BuildRequest(0, ntp.VERSION, ntp.CLIENT),
		response:      buf,
		state:         StateClosed,
		initialized:   true,
	}

	s.logger = s.base.With(
		zap.Stringer("attempt", s.id),
		zap.Stringer("server", s.server),
	)

	return nil
}

// Poll advances the attempt by one step without blocking. Errors are
// informational unless the returned status is StatusFailed; a session
// reporting StatusContinue keeps making progress on later polls.
func (s *Session) Poll() (Status, error) {
	if !s.initialized {
		return StatusContinue, ErrNotInitialized
	}

	if s.state.Terminal() {
		return StatusContinue, nil
	}

	if s.transport.State() == TransportClosed {
		if s.state != StateClosed {
			s.logger.Warn("transport closed, reopening", zap.Stringer("state", s.state))
		}

		s.state = StateClosed

		if err := s.transport.Open(s.localPort); err != nil {
			return StatusContinue, fmt.Errorf("opening transport: %w", err)
		}

		s.logger.Debug("transport opened", zap.Uint16("local_port", s.localPort))
		s.state = StateRequesting
	}

	if n := s.transport.Available(); n > 0 {
		return s.receive(n)
	}

	if s.transport.State() == TransportClosed {
		s.state = StateClosed
		return StatusContinue, nil
	}

	switch {
	case s.retryCount == 0:
		// first request goes out right away
		return s.send()
	case s.retryCount < s.retryCap:
		s.pollsSinceSend++
		if s.pollsSinceSend < s.pollsPerRetry {
			return StatusContinue, nil
		}

		s.state = StateRetrying
		return s.send()
	default:
		s.logger.Warn("no response, giving up", zap.Uint16("retries", s.retryCount))
		s.finish(StateFailed)
		return StatusFailed, ErrRetriesExhausted
	}
}

func (s *Session) send() (Status, error) {
	if err := s.transport.SendTo(s.request[:], s.server); err != nil {
		s.transport.Close()
		s.state = StateClosed
		return StatusContinue, fmt.Errorf("sending request: %w", err)
	}

	s.retryCount++
	s.pollsSinceSend = 0
	s.state = StateAwaitingResponse

	s.logger.Debug("request sent", zap.Uint16("retry", s.retryCount))

	return StatusContinue, nil
}

func (s *Session) receive(available int) (Status, error) {
	if available > len(s.response) {
		available = len(s.response)
	}

	n, src, err := s.transport.RecvFrom(s.response[:available])
	if err != nil {
		s.transport.Close()
		s.state = StateClosed
		return StatusContinue, fmt.Errorf("receiving response: %w", err)
	}

	if n == 0 {
		return StatusContinue, nil
	}

	if src != s.server {
		s.logger.Warn("discarding response", zap.Stringer("source", src), zap.Int("length", n))
		return StatusContinue, fmt.Errorf("%w: %s", ErrUnexpectedSource, src)
	}

	response := s.response[:n]

	seconds, err := ntp.ParseTransmitSeconds(response)
	if err != nil {
		s.logger.Warn("discarding response", zap.Int("length", n), zap.Stringer("source", src))
		return StatusContinue, fmt.Errorf("%w: %d bytes from %s: %w", ErrShortResponse, n, src, err)
	}

	if ce := s.logger.Check(zapcore.DebugLevel, "NTP response"); ce != nil {
		fields := []zap.Field{zap.Stringer("source", src), zap.Int("length", n)}

		if packet, err := ntp.DecodePacket(response); err == nil {
			fields = append(fields,
				zap.Uint8("leap", packet.Leap),
				zap.Uint8("version", packet.Version),
				zap.Stringer("mode", packet.Mode),
				zap.Uint8("stratum", packet.Stratum),
				zap.Time("transmit", ntp.NTPTimestampToTime(packet.Xmt)),
			)
		}

		ce.Write(fields...)
	}

	offset := civil.Offset(s.timezone)

	shifted, ok := civil.Shift(seconds, offset)
	if !ok {
		s.logger.Warn("discarding response", zap.Uint64("seconds", seconds), zap.Int32("offset", offset))
		return StatusContinue, fmt.Errorf("%w: %d%+d", ErrTimestampUnderflow, seconds, offset)
	}

	s.seconds = seconds
	s.dateTime = civil.ToCivil(shifted, s.epochYear)
	s.finish(StateSuccess)

	s.logger.Info("time synchronized", zap.Stringer("time", s.dateTime), zap.Int("timezone", s.timezone))

	return StatusSuccess, nil
}

func (s *Session) finish(state State) {
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("error closing transport", zap.Error(err))
	}

	s.retryCount = 0
	s.pollsSinceSend = 0
	s.state = state
}

// Abort abandons the attempt in progress. Init must be called before the
// session is polled again.
func (s *Session) Abort() error {
	s.initialized = false
	s.state = StateClosed
	return s.transport.Close()
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) RetryCount() uint16 {
	return s.retryCount
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// DateTime returns the civil time computed by the last successful poll.
func (s *Session) DateTime() (civil.DateTime, bool) {
	return s.dateTime, s.state == StateSuccess
}

// Seconds returns the server transmit seconds, before any timezone shift.
func (s *Session) Seconds() (uint64, bool) {
	return s.seconds, s.state == StateSuccess
}
