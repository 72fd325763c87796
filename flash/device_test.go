package flash

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

const testPartID = "32802"

// fakeDevice simulates the ISP bootloader on the far side of a Transport
type fakeDevice struct {
	echo bool

	pending []byte
	rx      []byte

	// payload is the number of raw bytes still expected after a W command
	payload int
	ram     []byte
	flash   map[uint32][]byte

	// lines is every command line received, in order
	lines []string

	// hook may rewrite the reply to a command line
	hook func(line string, resp []byte) []byte
}

var _ Transport = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{echo: true, flash: map[uint32][]byte{}}
}

func (d *fakeDevice) Write(bs ...[]byte) error {
	for _, b := range bs {
		d.pending = append(d.pending, b...)
	}
	d.process()
	return nil
}

func (d *fakeDevice) ReadN(n int, to time.Duration) ([]byte, error) {
	if len(d.rx) < n {
		out := d.rx
		d.rx = nil
		return out, ErrTimeout
	}
	out := append([]byte(nil), d.rx[:n]...)
	d.rx = d.rx[n:]
	return out, nil
}

func (d *fakeDevice) process() {
	for len(d.pending) > 0 {
		if d.payload > 0 {
			n := min(d.payload, len(d.pending))
			d.ram = append(d.ram, d.pending[:n]...)
			d.pending = d.pending[n:]
			d.payload -= n
			continue
		}

		i := bytes.Index(d.pending, []byte(crlf))
		if i < 0 {
			return
		}
		line := string(d.pending[:i])
		d.pending = d.pending[i+len(crlf):]
		d.handle(line)
	}
}

func (d *fakeDevice) handle(line string) {
	d.lines = append(d.lines, line)

	var resp []byte
	if d.echo && line != "?" {
		resp = append(resp, line+crlf...)
	}

	f := strings.Fields(line)
	arg := func(i int) uint32 {
		v, _ := strconv.ParseUint(f[i], 10, 32)
		return uint32(v)
	}

	switch f[0] {
	case "?":
		resp = append(resp, respSynchronized...)
	case "Synchronized":
		resp = append(resp, respOK...)
	case "A":
		d.echo = f[1] != "0"
		resp = append(resp, respSuccess...)
	case "J":
		resp = append(resp, respSuccess+testPartID+crlf...)
	case "U", "P", "E", "G":
		resp = append(resp, respSuccess...)
	case "W":
		d.ram = nil
		d.payload = int(arg(2))
		resp = append(resp, respSuccess...)
	case "C":
		d.flash[arg(1)] = append([]byte(nil), d.ram[:arg(3)]...)
		resp = append(resp, respSuccess...)
	case "R":
		data, ok := d.flash[arg(1)]
		if !ok {
			data = bytes.Repeat([]byte{0xff}, int(arg(2)))
		}
		resp = append(resp, respSuccess...)
		resp = append(resp, data...)
	default:
		// crystal frequency
		if _, err := strconv.Atoi(line); err == nil {
			resp = append(resp, respOK...)
		} else {
			resp = append(resp, "1"+crlf...)
		}
	}

	if d.hook != nil {
		resp = d.hook(line, resp)
	}
	d.rx = append(d.rx, resp...)
}

// addrs returns the address argument of every command line starting with op
func (d *fakeDevice) addrs(op string) []uint32 {
	var out []uint32
	for _, l := range d.lines {
		f := strings.Fields(l)
		if f[0] == op && len(f) > 1 {
			v, _ := strconv.ParseUint(f[1], 10, 32)
			out = append(out, uint32(v))
		}
	}
	return out
}

func (d *fakeDevice) sent(op string) bool {
	for _, l := range d.lines {
		if strings.Fields(l)[0] == op {
			return true
		}
	}
	return false
}
