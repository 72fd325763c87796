package flash

import (
	"fmt"
	"strconv"
)

const crlf = "\r\n"

// fixed parameters of the ISP dialect
const (
	BlockSize uint32 = 512

	// RAMStagingAddr is where blocks are written before being copied to
	// flash (0x10000400)
	RAMStagingAddr uint32 = 268436480

	CrystalKHz   uint32 = 12000
	UnlockCode   uint32 = 23130
	FirstSector  uint32 = 0
	LastSector   uint32 = 15
	SectorSize   uint32 = 1024
	FlashSize           = (LastSector - FirstSector + 1) * SectorSize
	EntryAddress uint32 = 0
)

// literal responses
const (
	respSynchronized = "Synchronized" + crlf
	respOK           = "OK" + crlf
	respSuccess      = "0" + crlf
)

type Op int

// the closed set of operations spoken to the bootloader
const (
	OpSync Op = iota
	OpSyncAck
	OpSetCrystal
	OpEchoOff
	OpReadPartID
	OpUnlock
	OpPrepare
	OpErase
	OpWriteRAM
	OpCopy
	OpReadFlash
	OpGo
)

type opSpec struct {
	name string

	// format is the command text, args are substituted as decimal
	format string
	nargs  int

	// response is what follows the echo (if any) on success
	response string

	// echoed is true for commands sent while the bootloader still echoes
	echoed bool
}

var opTable = map[Op]opSpec{
	OpSync:       {name: "sync", format: "?", response: respSynchronized},
	OpSyncAck:    {name: "sync ack", format: "Synchronized", response: respOK, echoed: true},
	OpSetCrystal: {name: "set crystal", format: "%d", nargs: 1, response: respOK, echoed: true},
	OpEchoOff:    {name: "echo off", format: "A 0", response: respSuccess, echoed: true},
	OpReadPartID: {name: "read part id", format: "J", response: respSuccess},
	OpUnlock:     {name: "unlock", format: "U %d", nargs: 1, response: respSuccess},
	OpPrepare:    {name: "prepare sectors", format: "P %d %d", nargs: 2, response: respSuccess},
	OpErase:      {name: "erase sectors", format: "E %d %d", nargs: 2, response: respSuccess},
	OpWriteRAM:   {name: "write to ram", format: "W %d %d", nargs: 2, response: respSuccess},
	OpCopy:       {name: "copy ram to flash", format: "C %d %d %d", nargs: 3, response: respSuccess},
	OpReadFlash:  {name: "read flash", format: "R %d %d", nargs: 2, response: respSuccess},
	OpGo:         {name: "go", format: "G %d T", nargs: 1, response: respSuccess},
}

func (o Op) spec() opSpec {
	s, ok := opTable[o]
	if !ok {
		panic("unknown isp op " + strconv.Itoa(int(o)))
	}
	return s
}

func (o Op) String() string {
	if s, ok := opTable[o]; ok {
		return s.name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Command is a single ISP operation with its numeric parameters
type Command struct {
	Op   Op
	Args []uint32
}

func newCommand(o Op, args ...uint32) Command {
	if n := o.spec().nargs; n != len(args) {
		panic(fmt.Sprintf("isp op %s takes %d args, got %d", o, n, len(args)))
	}
	return Command{Op: o, Args: args}
}

func SyncCmd() Command { return newCommand(OpSync) }
func SyncAckCmd() Command { return newCommand(OpSyncAck) }
func SetCrystalCmd(khz uint32) Command { return newCommand(OpSetCrystal, khz) }
func EchoOffCmd() Command { return newCommand(OpEchoOff) }
func ReadPartIDCmd() Command { return newCommand(OpReadPartID) }
func UnlockCmd() Command { return newCommand(OpUnlock, UnlockCode) }

func PrepareCmd(start, end uint32) Command { return newCommand(OpPrepare, start, end) }
func EraseCmd(start, end uint32) Command { return newCommand(OpErase, start, end) }

// WriteRAMCmd stages n bytes at the RAM staging address; the raw payload
// follows the success code
func WriteRAMCmd(n uint32) Command { return newCommand(OpWriteRAM, RAMStagingAddr, n) }

// CopyCmd copies n bytes from the RAM staging address to flash at addr
func CopyCmd(addr, n uint32) Command { return newCommand(OpCopy, addr, RAMStagingAddr, n) }

// ReadFlashCmd reads n raw bytes from flash at addr
func ReadFlashCmd(addr, n uint32) Command { return newCommand(OpReadFlash, addr, n) }

func GoCmd(addr uint32) Command { return newCommand(OpGo, addr) }

// text returns the command line without its terminator
func (c Command) text() string {
	s := c.Op.spec()
	if s.nargs == 0 {
		return s.format
	}
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		args[i] = a
	}
	return fmt.Sprintf(s.format, args...)
}

// Encode returns the CRLF terminated ASCII bytes sent on the wire
func (c Command) Encode() []byte {
	return []byte(c.text() + crlf)
}

// Expect returns the exact bytes the bootloader answers with on success,
// including the echo of the command while echo is still on
func (c Command) Expect() []byte {
	s := c.Op.spec()
	if s.echoed {
		return []byte(c.text() + crlf + s.response)
	}
	return []byte(s.response)
}

func (c Command) String() string {
	return c.text()
}
