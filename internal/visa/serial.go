package visa

import (
	"bufio"
	"io"

	"github.com/jacobsa/go-serial/serial"
)

type serialSession struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
	opts   Options
	closed bool
}

func openSerial(res Resource, opts Options) (Session, error) {
	baud := opts.Baud
	if res.Baud != 0 {
		baud = res.Baud
	}

	serialOpts := serial.OpenOptions{
		PortName:   res.Device,
		BaudRate:   baud,
		DataBits:   8,
		StopBits:   1,
		ParityMode: serial.PARITY_NONE,
		// With no minimum read size the inter-character timeout is the
		// per-command read timeout.
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(opts.Timeout.Milliseconds()),
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, err)
	}

	return &serialSession{
		port:   port,
		reader: bufio.NewReader(port),
		opts:   opts,
	}, nil
}

func (s *serialSession) Write(cmd string) error {
	if s.closed {
		return errFactory.New(ErrSessionClosed)
	}

	if _, err := io.WriteString(s.port, cmd+s.opts.WriteTerm); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

func (s *serialSession) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}

	line, err := s.reader.ReadString(s.opts.ReadTerm)
	if err != nil {
		return "", errFactory.Wrap(ErrQueryFailed, err)
	}

	return trimResponse(line, s.opts.ReadTerm), nil
}

func (s *serialSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.port.Close(); err != nil {
		return errFactory.Wrap(ErrCloseFailed, err)
	}

	return nil
}
