package flash

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Progress is reported once per block while programming and verifying
type Progress struct {
	// Phase is "programming" or "verifying"
	Phase string

	Addr  uint32
	Done  int
	Total int
}

type ProgressFunc func(Progress)

type options struct {
	readTimeout     time.Duration
	log             logrus.FieldLogger
	progress        ProgressFunc
	abortOnMismatch bool
}

func defaultOptions() options {
	return options{
		readTimeout: DefaultReadTimeout,
		log:         logrus.StandardLogger(),
	}
}

// Option configures a Session
type Option func(*options)

// WithReadTimeout sets how long to wait for each reply
func WithReadTimeout(to time.Duration) Option {
	return func(o *options) {
		if to > 0 {
			o.readTimeout = to
		}
	}
}

// WithLogger sets where stage results are logged
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithAbortOnMismatch makes a verify mismatch fatal. By default mismatches
// are logged and the chip is still told to run the new image.
func WithAbortOnMismatch(abort bool) Option {
	return func(o *options) {
		o.abortOnMismatch = abort
	}
}
