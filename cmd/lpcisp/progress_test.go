package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/synthread/go-lpcisp/flash"
)

func TestProgressBars(t *testing.T) {
	var out bytes.Buffer
	bars := newProgressBars(&out)

	bars.update(flash.Progress{Phase: "programming", Done: 1, Total: 2})
	first := bars.bar
	bars.update(flash.Progress{Phase: "programming", Done: 2, Total: 2})
	bars.update(flash.Progress{Phase: "verifying", Done: 1, Total: 2})

	if !first.IsFinished() {
		t.Error("programming bar not finished when verifying started")
	}
	if bars.bar == first {
		t.Fatal("no new bar for the verifying phase")
	}
	if bars.bar.IsFinished() {
		t.Error("verifying bar finished early")
	}

	bars.finish()
	if !bars.bar.IsFinished() {
		t.Error("last bar not finished")
	}
	bars.finish()

	if out.Len() == 0 {
		t.Error("nothing drawn to the bar writer")
	}
}

func TestProgressBarsFinishWithoutBar(t *testing.T) {
	var out bytes.Buffer
	newProgressBars(&out).finish()
	if out.Len() != 0 {
		t.Errorf("finish() drew %q with no bar", out.String())
	}
}

func TestProgressBarsQuietLog(t *testing.T) {
	orig := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(orig) })

	tests := []struct {
		name  string
		level logrus.Level
		want  logrus.Level
	}{
		{"info", logrus.InfoLevel, logrus.WarnLevel},
		{"debug", logrus.DebugLevel, logrus.WarnLevel},
		{"error", logrus.ErrorLevel, logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logrus.SetLevel(tt.level)
			newProgressBars(&bytes.Buffer{}).option()
			if got := logrus.GetLevel(); got != tt.want {
				t.Errorf("level = %s, want %s", got, tt.want)
			}
		})
	}
}
