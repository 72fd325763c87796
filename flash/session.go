package flash

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HandshakeState tracks the synchronization exchange with the bootloader
type HandshakeState int

const (
	StateIdle HandshakeState = iota
	StateSentSync
	StateAckedSync
	StateFreqSet
	StateEchoOff
	StateReady
	StateFailed
)

func (s HandshakeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSentSync:
		return "sent sync"
	case StateAckedSync:
		return "acked sync"
	case StateFreqSet:
		return "frequency set"
	case StateEchoOff:
		return "echo off"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// Mismatch describes a block whose read back contents differ from the image
type Mismatch struct {
	Addr uint32

	// Received is how many bytes came back before the timeout
	Received int

	// Offset is the first differing byte within the block
	Offset int
}

// Report is the outcome of a session that ran to completion
type Report struct {
	Blocks     int
	Mismatches []Mismatch
}

// OK is true when every block verified
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Session drives one flashing run over a transport. It is not safe for
// concurrent use.
type Session struct {
	t    Transport
	opts options

	state HandshakeState
	index int
	dir   Direction
}

func NewSession(t Transport, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{t: t, opts: o}
}

func (s *Session) State() HandshakeState {
	return s.state
}

// Handshake synchronizes with the bootloader, sets the crystal frequency
// and turns echo off. It may only be attempted once per session.
func (s *Session) Handshake() error {
	if s.state != StateIdle {
		return stageErr(StageSync, errors.Errorf("handshake already attempted (%s)", s.state))
	}

	steps := []struct {
		cmd  Command
		next HandshakeState
	}{
		{SyncCmd(), StateSentSync},
		{SyncAckCmd(), StateAckedSync},
		{SetCrystalCmd(CrystalKHz), StateFreqSet},
		{EchoOffCmd(), StateEchoOff},
	}

	for _, st := range steps {
		if err := s.exec(st.cmd); err != nil {
			s.state = StateFailed
			return stageErr(StageSync, err)
		}
		s.state = st.next
	}
	s.state = StateReady

	return nil
}

func (s *Session) requireReady(stage Stage) error {
	if s.state != StateReady {
		return stageErr(stage, errors.Wrapf(ErrNotSynchronized, "state %s", s.state))
	}
	return nil
}

// InitFlash unlocks and erases the flash sectors
func (s *Session) InitFlash() error {
	if err := s.requireReady(StageFlashInit); err != nil {
		return err
	}
	if err := s.ispInitFlash(); err != nil {
		return stageErr(StageFlashInit, err)
	}
	return nil
}

// traverse calls fn for every block in the given direction, stopping at the
// first error
func (s *Session) traverse(blocks []Block, d Direction, fn func(Block) error) error {
	s.dir = d
	for n := range blocks {
		s.index = n
		if d == Descending {
			s.index = len(blocks) - 1 - n
		}
		s.opts.log.WithFields(logrus.Fields{"index": s.index, "direction": s.dir}).Debug("next block")
		if err := fn(blocks[s.index]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) report(phase string, b Block, done, total int) {
	if s.opts.progress != nil {
		s.opts.progress(Progress{Phase: phase, Addr: b.Addr, Done: done, Total: total})
	}
}

// Program writes every block, highest address first, so the vector table in
// block 0 is the last thing written
func (s *Session) Program(blocks []Block) error {
	if err := s.requireReady(StageProgram); err != nil {
		return err
	}

	done := 0
	return s.traverse(blocks, Descending, func(b Block) error {
		s.opts.log.WithField("addr", b.Addr).Infof("flash #%d...", b.Addr)
		if err := s.ispWriteBlock(b); err != nil {
			return blockErr(StageProgram, b.Addr, err)
		}
		done++
		s.report("programming", b, done, len(blocks))
		return nil
	})
}

// Verify reads every block back, lowest address first. Blocks whose content
// differs are returned as mismatches; only protocol failures are errors.
func (s *Session) Verify(blocks []Block) ([]Mismatch, error) {
	if err := s.requireReady(StageVerify); err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	done := 0
	err := s.traverse(blocks, Ascending, func(b Block) error {
		got, err := s.ispReadBlock(b)
		if err != nil {
			return blockErr(StageVerify, b.Addr, err)
		}

		log := s.opts.log.WithField("addr", b.Addr)
		if bytes.Equal(got, b.Data) {
			log.Infof("verify #%d: OK", b.Addr)
		} else {
			m := Mismatch{Addr: b.Addr, Received: len(got), Offset: firstDiff(got, b.Data)}
			log.WithField("received", m.Received).WithField("offset", m.Offset).
				Warnf("verify #%d: fail", b.Addr)
			mismatches = append(mismatches, m)
		}

		done++
		s.report("verifying", b, done, len(blocks))
		return nil
	})

	return mismatches, err
}

// Go tells the bootloader to run the flashed image
func (s *Session) Go() error {
	if err := s.requireReady(StageGo); err != nil {
		return err
	}
	if err := s.exec(GoCmd(EntryAddress)); err != nil {
		return stageErr(StageGo, err)
	}
	s.opts.log.Infof("goto 0x%08x", EntryAddress)
	return nil
}

// ReadPartID returns the part identification number of the chip
func (s *Session) ReadPartID() (string, error) {
	if err := s.requireReady(StageSync); err != nil {
		return "", err
	}
	pid, err := s.ispReadPartID()
	if err != nil {
		return "", stageErr(StageSync, err)
	}
	return pid, nil
}

// Run performs a complete flashing sequence: handshake, erase, program from
// the top down, verify from the bottom up and finally jump into the image.
func (s *Session) Run(image []byte) (*Report, error) {
	if err := s.Handshake(); err != nil {
		return nil, err
	}
	s.opts.log.Info("sync: OK")

	if err := s.InitFlash(); err != nil {
		return nil, err
	}
	s.opts.log.Info("init flash: OK")

	blocks := PrepareImage(image)
	s.opts.log.WithField("blocks", len(blocks)).
		Infof("user code: %d", int32(VectorChecksum(blocks[0].Data)))

	if err := s.Program(blocks); err != nil {
		return nil, err
	}

	rep := &Report{Blocks: len(blocks)}

	mismatches, err := s.Verify(blocks)
	rep.Mismatches = mismatches
	if err != nil {
		return rep, err
	}

	if !rep.OK() && s.opts.abortOnMismatch {
		return rep, stageErr(StageVerify, errors.Wrapf(ErrVerifyMismatch, "%d of %d blocks", len(rep.Mismatches), rep.Blocks))
	}

	if err := s.Go(); err != nil {
		return rep, err
	}

	return rep, nil
}

// firstDiff returns the index of the first byte that differs, or the length
// of the shorter slice if one is a prefix of the other
func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
