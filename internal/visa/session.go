// Package visa opens command/response sessions to instruments
// addressed by VISA-style resource identifiers. Raw TCP sockets and
// local serial devices are supported natively.
package visa

import (
	"bufio"
	"io"
	"net"
	"strings"
	"time"
)

// Channel defaults, matching common bench instrument settings.
const (
	DefaultTimeout = 5 * time.Second
	DefaultBaud    = 9600
)

// Options controls channel behavior for one session.
type Options struct {
	Timeout   time.Duration // per command, both directions
	ReadTerm  byte          // response line terminator
	WriteTerm string        // appended to every outgoing command
	Baud      uint          // serial resources only
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ReadTerm == 0 {
		o.ReadTerm = '\n'
	}
	if o.WriteTerm == "" {
		o.WriteTerm = "\n"
	}
	if o.Baud == 0 {
		o.Baud = DefaultBaud
	}

	return o
}

// Open establishes a session to the given resource identifier.
func Open(resource string, opts Options) (Session, error) {
	res, err := ParseResource(resource)
	if err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	switch res.Kind {
	case KindTCP:
		return openTCP(res, opts)
	case KindSerial:
		return openSerial(res, opts)
	}

	return nil, errFactory.WithData(ErrInvalidResource, resource)
}

type tcpSession struct {
	conn   net.Conn
	reader *bufio.Reader
	opts   Options
	closed bool
}

func openTCP(res Resource, opts Options) (Session, error) {
	conn, err := net.DialTimeout("tcp", res.Endpoint(), opts.Timeout)
	if err != nil {
		return nil, wrapIO(ErrConnectFailed, err)
	}

	return &tcpSession{
		conn:   conn,
		reader: bufio.NewReader(conn),
		opts:   opts,
	}, nil
}

func (s *tcpSession) Write(cmd string) error {
	if s.closed {
		return errFactory.New(ErrSessionClosed)
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.Timeout)); err != nil {
		return wrapIO(ErrWriteFailed, err)
	}
	if _, err := io.WriteString(s.conn, cmd+s.opts.WriteTerm); err != nil {
		return wrapIO(ErrWriteFailed, err)
	}

	return nil
}

func (s *tcpSession) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.Timeout)); err != nil {
		return "", wrapIO(ErrQueryFailed, err)
	}

	line, err := s.reader.ReadString(s.opts.ReadTerm)
	if err != nil {
		return "", wrapIO(ErrQueryFailed, err)
	}

	return trimResponse(line, s.opts.ReadTerm), nil
}

func (s *tcpSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.conn.Close(); err != nil {
		return errFactory.Wrap(ErrCloseFailed, err)
	}

	return nil
}

// trimResponse strips the terminator plus any stray framing whitespace
// (instruments commonly answer with "\r\n" regardless of settings).
func trimResponse(line string, term byte) string {
	line = strings.TrimSuffix(line, string(term))

	return strings.TrimSpace(line)
}
