package flash

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// maxPartIDLen bounds the reply line of the part id command
const maxPartIDLen = 16

// exec will send the command and check the reply matches exactly
func (s *Session) exec(c Command) error {
	if err := s.t.Write(c.Encode()); err != nil {
		return errors.Wrapf(err, "could not send %q", c)
	}

	want := c.Expect()
	got, err := s.t.ReadN(len(want), s.opts.readTimeout)
	if err != nil && !errors.Is(err, ErrTimeout) {
		return errors.Wrapf(err, "could not read reply to %q", c)
	}

	if !bytes.Equal(got, want) {
		return errors.Wrapf(ErrUnexpectedResponse, "%s: got %q, want %q", c.Op, got, want)
	}

	return nil
}

// execAll runs the commands in order and stops at the first failure
func (s *Session) execAll(cmds ...Command) error {
	for _, c := range cmds {
		if err := s.exec(c); err != nil {
			return err
		}
	}
	return nil
}

// ispInitFlash unlocks the flash commands and erases every sector
func (s *Session) ispInitFlash() error {
	return s.execAll(
		UnlockCmd(),
		PrepareCmd(FirstSector, LastSector),
		EraseCmd(FirstSector, LastSector),
		UnlockCmd(),
	)
}

// ispWriteBlock stages the block in RAM and copies it to its flash address
func (s *Session) ispWriteBlock(b Block) error {
	n := uint32(len(b.Data))

	if err := s.execAll(PrepareCmd(FirstSector, LastSector), WriteRAMCmd(n)); err != nil {
		return err
	}

	if err := s.t.Write(b.Data); err != nil {
		return errors.Wrap(err, "could not send block")
	}

	// sectors must be prepared again before every copy
	return s.execAll(PrepareCmd(FirstSector, LastSector), CopyCmd(b.Addr, n))
}

// ispReadBlock reads back a block. A short read is returned as data, not as
// an error, so callers compare it like any other content.
func (s *Session) ispReadBlock(b Block) ([]byte, error) {
	n := len(b.Data)
	if err := s.exec(ReadFlashCmd(b.Addr, uint32(n))); err != nil {
		return nil, err
	}

	bs, err := s.t.ReadN(n, s.opts.readTimeout)
	if err != nil && !errors.Is(err, ErrTimeout) {
		return nil, errors.Wrap(err, "could not read block")
	}

	return bs, nil
}

// ispReadPartID returns the decimal part identifier
func (s *Session) ispReadPartID() (string, error) {
	if err := s.exec(ReadPartIDCmd()); err != nil {
		return "", err
	}

	var line []byte
	for len(line) < maxPartIDLen {
		b, err := s.t.ReadN(1, s.opts.readTimeout)
		if err != nil {
			return "", errors.Wrap(err, "could not read part id")
		}
		if b[0] == '\n' {
			return strings.TrimSpace(string(line)), nil
		}
		line = append(line, b[0])
	}

	return "", errors.Wrapf(ErrUnexpectedResponse, "part id too long: %q", line)
}
