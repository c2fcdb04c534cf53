package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/shared"
	"golang.org/x/sys/unix"
)

// pollInterval bounds each blocking read so cancellation is honored
// promptly even though the underlying read has no data.
const pollInterval = 500 * time.Millisecond

// Serial reads tag payloads from a line-oriented serial reader (PN532
// breakout boards and UART keyboard-wedge readers emit the decoded tag
// content followed by CR/LF).
type Serial struct {
	device string
	file   *os.File
	logger *log.Logger
}

// NewSerial opens the serial device and configures it for raw 8N1 I/O
// at the given baud rate.
func NewSerial(device string, baud int, logger *log.Logger) (*Serial, error) {
	file, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", shared.ErrNoReader, device, err)
	}

	if err := configureTTY(int(file.Fd()), baud); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: configure %s: %v", shared.ErrNoReader, device, err)
	}

	return &Serial{device: device, file: file, logger: logger}, nil
}

// Read blocks until a full line arrives from the reader or the context
// is cancelled.
func (s *Serial) Read(ctx context.Context) (string, error) {
	var line bytes.Buffer
	buf := make([]byte, 64)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := s.file.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return "", fmt.Errorf("%w: set deadline: %v", shared.ErrReader, err)
		}

		n, err := s.file.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == '\n' || b == '\r' {
					if line.Len() > 0 {
						return line.String(), nil
					}
					continue
				}
				line.WriteByte(b)
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return "", fmt.Errorf("%w: read %s: %v", shared.ErrReader, s.device, err)
		}
	}
}

// Write sends the payload to the reader for tag programming, terminated
// with CR/LF. Readers without write support reject the command, which
// surfaces as a reader fault.
func (s *Serial) Write(ctx context.Context, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.file.Write([]byte(payload + "\r\n")); err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrReader, s.device, err)
	}

	return nil
}

// Close releases the serial device.
func (s *Serial) Close() error {
	return s.file.Close()
}

// configureTTY puts the terminal into raw 8N1 mode at the requested
// baud rate.
func configureTTY(fd int, baud int) error {
	speed, err := baudFlag(baud)
	if err != nil {
		return err
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	tio.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	tio.Ispeed = speed
	tio.Ospeed = speed
	tio.Cc[unix.VMIN] = 0
	tio.Cc[unix.VTIME] = 1

	return unix.IoctlSetTermios(fd, unix.TCSETS, tio)
}

func baudFlag(baud int) (uint32, error) {
	switch baud {
	case 0, 115200:
		return unix.B115200, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("%w: unsupported baud rate %d", shared.ErrInvalidConfig, baud)
	}
}
