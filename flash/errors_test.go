package flash

import (
	"testing"

	"github.com/pkg/errors"
)

func TestStageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"stage", stageErr(StageSync, ErrUnexpectedResponse), "sync fail: unexpected response from bootloader"},
		{"block", blockErr(StageProgram, 1024, ErrTimeout), "flash #1024 fail: timed out reading from microcontroller"},
		{"go", stageErr(StageGo, ErrClosed), "go fail: serial port is closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStageOf(t *testing.T) {
	err := errors.Wrap(blockErr(StageVerify, 512, ErrTimeout), "session")

	stage, ok := StageOf(err)
	if !ok || stage != StageVerify {
		t.Errorf("StageOf() = %s, %v", stage, ok)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("wrapped cause lost")
	}
	if errors.Cause(blockErr(StageVerify, 0, ErrTimeout)) != ErrTimeout {
		t.Error("Cause() does not reach the sentinel")
	}

	if _, ok := StageOf(ErrTimeout); ok {
		t.Error("StageOf() found a stage in a plain error")
	}
}
