package flash

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrTimeout = errors.New("timed out reading from microcontroller")
var ErrClosed = errors.New("serial port is closed")
var ErrUnexpectedResponse = errors.New("unexpected response from bootloader")
var ErrNotSynchronized = errors.New("bootloader handshake has not completed")
var ErrVerifyMismatch = errors.New("flash contents differ from image")

// Stage is the part of a flashing session a fatal error came from
type Stage int

const (
	StageSync Stage = iota + 1
	StageFlashInit
	StageProgram
	StageVerify
	StageGo
)

func (s Stage) String() string {
	switch s {
	case StageSync:
		return "sync"
	case StageFlashInit:
		return "init flash"
	case StageProgram:
		return "flash"
	case StageVerify:
		return "verify"
	case StageGo:
		return "go"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError is returned for any failure that aborts a session
type StageError struct {
	Stage Stage

	// Addr is the flash address of the block being handled, HasAddr is
	// false for stages that are not per block
	Addr    uint32
	HasAddr bool

	Err error
}

func (e *StageError) Error() string {
	if e.HasAddr {
		return fmt.Sprintf("%s #%d fail: %v", e.Stage, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s fail: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
func (e *StageError) Cause() error  { return e.Err }

func stageErr(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}

func blockErr(s Stage, addr uint32, err error) error {
	return &StageError{Stage: s, Addr: addr, HasAddr: true, Err: err}
}

// StageOf reports the stage that produced err, if any
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}
