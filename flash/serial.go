package flash

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Transport is a duplex byte channel to the bootloader
type Transport interface {
	// Write sends the buffers in order and returns once they are flushed
	Write(bs ...[]byte) error

	// ReadN reads n bytes, waiting at most to. On timeout the bytes received
	// so far are returned along with ErrTimeout.
	ReadN(n int, to time.Duration) ([]byte, error)
}

// openPort is swapped out in tests
var openPort = serial.Open

// Open acquires the serial port and puts the chip into ISP mode if control
// lines are configured. Every successful Open must be paired with Close.
func (mc *Microcontroller) Open() (err error) {
	if err = mc.setupPins(); err != nil {
		return errors.Wrap(err, "could not setup pins")
	}

	mc.ttyPort, err = openPort(mc.TTY(), &serial.Mode{
		BaudRate: mc.BaudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		mc.releasePins()
		return errors.Wrap(err, "could not open serial")
	}

	mc.enterISP()

	if err = mc.ttyPort.ResetInputBuffer(); err != nil {
		mc.Close()
		return errors.Wrap(err, "could not reset input buffer")
	}

	mc.ttyRx = make(chan byte, 1024)
	mc.rxDone = make(chan struct{})
	go mc.rx(mc.ttyPort, mc.ttyRx, mc.rxDone)

	logrus.WithField("tty", mc.TTY()).Debug("mcu open")

	return nil
}

// Close will release the serial port and the control lines
func (mc *Microcontroller) Close() error {
	var err error
	if mc.ttyPort != nil {
		err = mc.ttyPort.Close()
		mc.ttyPort = nil
	}
	if mc.rxDone != nil {
		<-mc.rxDone
		mc.rxDone = nil
	}

	mc.releasePins()

	logrus.Debug("mcu close")

	return errors.Wrap(err, "could not close serial")
}

func (mc *Microcontroller) IsOpen() bool {
	return mc.ttyPort != nil
}

// rx is the loop that will read from the port and write the incoming bytes
// to the rx chan until the port is closed
func (mc *Microcontroller) rx(port serial.Port, out chan<- byte, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, 64)

	if err := port.SetReadTimeout(1 * time.Millisecond); err != nil {
		logrus.Error("rx err: ", err.Error())
		return
	}

	for {
		n, err := port.Read(buf)
		if err != nil {

			// don't write out if we're just complaining about it being closed
			var perr *serial.PortError
			if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
				return
			}

			if errors.Is(err, syscall.EBADF) {
				return
			}

			logrus.Error("rx err: ", err.Error())
			return
		}

		for _, b := range buf[:n] {
			select {
			case out <- b:
			default:
				logrus.Warn("rx overflow, dropping byte")
			}
		}
		if n > 0 {
			logrus.Debugf("mcu rx: %x", buf[:n])
		}
	}
}

// Write will write the specified bytes to the microcontroller and wait for
// them to be transmitted
func (mc *Microcontroller) Write(bs ...[]byte) (err error) {
	if !mc.IsOpen() {
		return ErrClosed
	}

	if len(bs) == 0 {
		panic("must provide at least one []byte")
	}

	for _, b := range bs {
		_, err = mc.ttyPort.Write(b)
		if err != nil {
			return errors.Wrap(err, "could not write serial")
		}
		logrus.Debugf("mcu tx: %x", b)
	}

	return errors.Wrap(mc.ttyPort.Drain(), "could not drain serial")
}

// ReadN will read N bytes from the rx chan. If the timeout elapses first the
// bytes read so far are returned with ErrTimeout.
func (mc *Microcontroller) ReadN(n int, to time.Duration) ([]byte, error) {
	if !mc.IsOpen() {
		return nil, ErrClosed
	}

	bs := make([]byte, 0, n)
	timer := time.NewTimer(to)
	defer timer.Stop()

	for len(bs) < n {
		select {
		case <-timer.C:
			return bs, ErrTimeout
		case b := <-mc.ttyRx:
			bs = append(bs, b)
		}
	}

	return bs, nil
}
