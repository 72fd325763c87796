package flash

import (
	"bytes"
	"testing"
)

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"sync", SyncCmd(), "?\r\n"},
		{"sync ack", SyncAckCmd(), "Synchronized\r\n"},
		{"crystal", SetCrystalCmd(CrystalKHz), "12000\r\n"},
		{"echo off", EchoOffCmd(), "A 0\r\n"},
		{"part id", ReadPartIDCmd(), "J\r\n"},
		{"unlock", UnlockCmd(), "U 23130\r\n"},
		{"prepare", PrepareCmd(FirstSector, LastSector), "P 0 15\r\n"},
		{"erase", EraseCmd(FirstSector, LastSector), "E 0 15\r\n"},
		{"write ram", WriteRAMCmd(BlockSize), "W 268436480 512\r\n"},
		{"copy", CopyCmd(1024, BlockSize), "C 1024 268436480 512\r\n"},
		{"copy zero", CopyCmd(0, BlockSize), "C 0 268436480 512\r\n"},
		{"read", ReadFlashCmd(512, BlockSize), "R 512 512\r\n"},
		{"go", GoCmd(EntryAddress), "G 0 T\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.cmd.Encode()); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandExpect(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"sync", SyncCmd(), "Synchronized\r\n"},
		{"sync ack echoed", SyncAckCmd(), "Synchronized\r\nOK\r\n"},
		{"crystal echoed", SetCrystalCmd(CrystalKHz), "12000\r\nOK\r\n"},
		{"echo off echoed", EchoOffCmd(), "A 0\r\n0\r\n"},
		{"unlock", UnlockCmd(), "0\r\n"},
		{"copy", CopyCmd(512, BlockSize), "0\r\n"},
		{"read", ReadFlashCmd(0, BlockSize), "0\r\n"},
		{"go", GoCmd(0), "0\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Expect(); !bytes.Equal(got, []byte(tt.want)) {
				t.Errorf("Expect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandArgCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for wrong argument count")
		}
	}()
	newCommand(OpCopy, 0)
}

func TestOpString(t *testing.T) {
	if got := OpCopy.String(); got != "copy ram to flash" {
		t.Errorf("OpCopy.String() = %q", got)
	}
	if got := Op(99).String(); got != "op(99)" {
		t.Errorf("Op(99).String() = %q", got)
	}
	if got := CopyCmd(512, 512).String(); got != "C 512 268436480 512" {
		t.Errorf("Command.String() = %q", got)
	}
}
