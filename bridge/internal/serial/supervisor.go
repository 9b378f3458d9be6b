package serial

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/serialbridge/serialbridge/bridge/internal/metrics"
)

// lineChanDepth absorbs short delivery stalls without blocking the reader.
const lineChanDepth = 64

// maxLineBytes bounds one delimiter-framed chunk; a device spewing garbage
// without delimiters is treated as a read error.
const maxLineBytes = 256 * 1024

// errStreamEnded marks a port that stopped yielding data without a read
// error (unplugged devices often just EOF).
var errStreamEnded = errors.New("serial: stream ended")

// Config holds the supervisor's connection settings.
type Config struct {
	// Device is the port path, or DeviceAuto to discover one.
	Device string

	// BaudRate is the line speed used on open.
	BaudRate int

	// Delimiter is the byte sequence terminating one record.
	Delimiter string

	// ReconnectDelay is the fixed wait between connection attempts.
	ReconnectDelay time.Duration
}

// openFunc opens a device at a baud rate. Injectable for tests.
type openFunc func(device string, baud int) (io.ReadCloser, error)

// enumerateFunc lists candidate ports. Injectable for tests.
type enumerateFunc func() ([]PortInfo, error)

// Supervisor drives the connection state machine and publishes framed lines.
type Supervisor struct {
	cfg   Config
	m     *metrics.Metrics
	lines chan []byte
	state atomic.Int32

	open      openFunc
	enumerate enumerateFunc

	// notify, when set, observes every state transition. Used by tests.
	notify func(State)
}

// NewSupervisor creates a Supervisor in the Disconnected state.
// Run must be called exactly once.
func NewSupervisor(cfg Config, m *metrics.Metrics) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		m:         m,
		lines:     make(chan []byte, lineChanDepth),
		open:      openPort,
		enumerate: enumeratePorts,
	}
}

// Lines returns the stream of delimiter-framed chunks, in arrival order.
// The channel is closed when Run returns.
func (s *Supervisor) Lines() <-chan []byte { return s.lines }

// State returns the current connection state.
func (s *Supervisor) State() State { return State(s.state.Load()) }

// Run drives the state machine until ctx is cancelled: discover, open, read
// until fault, wait ReconnectDelay, repeat. Every failure path re-enters the
// wait — open errors and mid-stream faults are handled identically.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.lines)

	first := true
	for ctx.Err() == nil {
		if !first && s.m != nil {
			s.m.ReconnectsTotal.Inc()
		}
		first = false

		s.setState(StateConnecting)
		device := s.selectDevice()

		port, err := s.open(device, s.cfg.BaudRate)
		if err != nil {
			slog.Warn("supervisor: open failed, will retry",
				"device", device,
				"err", err,
				"retry_in", s.cfg.ReconnectDelay,
			)
			s.setState(StateDisconnected)
			if !s.wait(ctx) {
				return
			}
			continue
		}

		slog.Info("supervisor: port open", "device", device, "baud", s.cfg.BaudRate)

		// Close the port when the process shuts down so a blocked Read
		// returns. Close is idempotent; the fault path below closes too.
		stop := context.AfterFunc(ctx, func() { port.Close() })
		err = s.readLines(ctx, port)
		stop()
		port.Close()

		s.setState(StateFaulted)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}

		slog.Warn("supervisor: connection lost, will reconnect",
			"device", device,
			"err", err,
			"retry_in", s.cfg.ReconnectDelay,
		)
		s.setState(StateDisconnected)
		if !s.wait(ctx) {
			return
		}
	}
}

// readLines frames the byte stream on the configured delimiter and publishes
// each chunk. It returns when the stream errors, ends, or ctx is cancelled;
// the returned error describes why this Open period ended.
func (s *Supervisor) readLines(ctx context.Context, r io.Reader) error {
	s.setState(StateOpen)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	sc.Split(splitOn([]byte(s.cfg.Delimiter)))

	for sc.Scan() {
		// The scanner reuses its buffer; the pipeline owns the copy.
		line := append([]byte(nil), sc.Bytes()...)
		select {
		case s.lines <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errStreamEnded
}

// wait sleeps for the reconnect delay; false means ctx was cancelled.
func (s *Supervisor) wait(ctx context.Context) bool {
	t := time.NewTimer(s.cfg.ReconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	if s.m != nil {
		s.m.ConnectionState.Set(float64(st))
	}
	if s.notify != nil {
		s.notify(st)
	}
	slog.Debug("supervisor: state", "state", st.String())
}

// splitOn returns a bufio.SplitFunc framing on an arbitrary delimiter.
// A trailing unterminated chunk at stream end is emitted as a final line.
func splitOn(delim []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if i := bytes.Index(data, delim); i >= 0 {
			return i + len(delim), data[:i], nil
		}
		if atEOF && len(data) > 0 {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
