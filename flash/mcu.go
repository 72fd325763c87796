package flash

import (
	"time"

	"github.com/piotrjaromin/gpio"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var DefaultBaud = 115200
var DefaultTTY = "/dev/ttyUSB0"
var DefaultReadTimeout = 1 * time.Second

// Config defines configuration for communicating and flashing the
// microcontroller
type Config struct {
	// ResetGPIO and ISPGPIO are the host GPIO lines wired to the chip's
	// RESET and ISP entry pins. Zero leaves the line unused and the chip is
	// expected to already be in ISP mode.
	ResetGPIO int
	ISPGPIO   int

	BootloaderBaud int
	TTY            string
	ReadTimeout    time.Duration
}

// Microcontroller represents an embedded microntroller chip that can be
// communicated with over UART
type Microcontroller struct {
	config *Config

	pinReset gpio.Pin
	pinISP   gpio.Pin
	hasReset bool
	hasISP   bool

	ttyPort serial.Port
	ttyRx   chan byte
	rxDone  chan struct{}

	identity string
}

var _ Transport = (*Microcontroller)(nil)

// NewMicrocontroller will create a new reference to a particular chip
func NewMicrocontroller(c *Config) *Microcontroller {
	if c == nil {
		c = &Config{}
	}

	return &Microcontroller{config: c}
}

func (mc *Microcontroller) setupPins() error {
	var err error
	if mc.config.ResetGPIO > 0 && !mc.hasReset {
		mc.pinReset, err = gpio.NewOutput(uint(mc.config.ResetGPIO), true)
		if err != nil {
			return errors.Wrap(err, "reset pin")
		}
		mc.hasReset = true
	}
	if mc.config.ISPGPIO > 0 && !mc.hasISP {
		mc.pinISP, err = gpio.NewOutput(uint(mc.config.ISPGPIO), true)
		if err != nil {
			mc.releasePins()
			return errors.Wrap(err, "isp pin")
		}
		mc.hasISP = true
	}

	return nil
}

// enterISP will hold the ISP pin low across a reset so the chip starts in
// its bootloader
func (mc *Microcontroller) enterISP() {
	if !mc.hasReset {
		return
	}

	if mc.hasISP {
		mc.pinISP.Low()
	}
	mc.pinReset.Low()
	time.Sleep(10 * time.Millisecond)
	mc.pinReset.High()
	time.Sleep(50 * time.Millisecond)
}

// releasePins resets the pins to a running state
func (mc *Microcontroller) releasePins() {
	if mc.hasISP {
		mc.pinISP.High()
		mc.pinISP.Cleanup()
		mc.hasISP = false
	}
	if mc.hasReset {
		mc.pinReset.High()
		mc.pinReset.Cleanup()
		mc.hasReset = false
	}
}

// Identify will synchronize with the bootloader and report back the part
// identification number of the chip
func (mc *Microcontroller) Identify() (string, error) {
	if mc.identity != "" {
		return mc.identity, nil
	}

	if !mc.IsOpen() {
		if err := mc.Open(); err != nil {
			return "", err
		}
		defer mc.Close()
	}

	s := NewSession(mc, WithReadTimeout(mc.ReadTimeout()))
	if err := s.Handshake(); err != nil {
		return "", err
	}

	pid, err := s.ReadPartID()
	if err != nil {
		return "", err
	}
	mc.identity = "LPC_" + pid

	return mc.identity, nil
}

// TTY will return the TTY that will be used
func (mc *Microcontroller) TTY() string {
	if mc.config.TTY != "" {
		return mc.config.TTY
	}
	return DefaultTTY
}

// BaudRate will return the baud rate used to connect to the TTY
func (mc *Microcontroller) BaudRate() int {
	if mc.config.BootloaderBaud > 0 {
		return mc.config.BootloaderBaud
	}
	return DefaultBaud
}

// ReadTimeout will return how long to wait for a reply from the bootloader
func (mc *Microcontroller) ReadTimeout() time.Duration {
	if mc.config.ReadTimeout > 0 {
		return mc.config.ReadTimeout
	}
	return DefaultReadTimeout
}
