package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synthread/go-lpcisp/flash"
)

var cfg flash.Config

var (
	verbose      bool
	strictVerify bool
	noProgress   bool
)

var rootCmd = &cobra.Command{
	Use:   "lpcisp <firmware>",
	Short: "Flash a firmware image through the LPC serial ISP bootloader",
	Long: `Flash a raw (.bin) or Intel HEX (.hex) firmware image through the serial
ISP bootloader: synchronize, erase, program, verify and start the image.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := flash.LoadImage(args[0])
		if err != nil {
			return err
		}

		opts := []flash.Option{flash.WithAbortOnMismatch(strictVerify)}
		if !noProgress && !verbose {
			bars := newProgressBars(os.Stderr)
			defer bars.finish()
			opts = append(opts, bars.option())
		}

		mc := flash.NewMicrocontroller(&cfg)
		rep, err := mc.FlashPayload(image, opts...)
		if err != nil {
			return err
		}

		if !rep.OK() {
			logrus.Warnf("%d of %d blocks failed verification", len(rep.Mismatches), rep.Blocks)
		}
		return nil
	},
}

// progressBars renders progress events, starting a new bar for each phase
type progressBars struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	phase string
}

func newProgressBars(out io.Writer) *progressBars {
	return &progressBars{out: out}
}

// option routes session progress to the bars. Info logging is lowered to
// warnings so per block lines do not tear through the bars.
func (p *progressBars) option() flash.Option {
	if logrus.GetLevel() > logrus.WarnLevel {
		logrus.SetLevel(logrus.WarnLevel)
	}
	return flash.WithProgress(p.update)
}

func (p *progressBars) update(ev flash.Progress) {
	if ev.Phase != p.phase {
		p.finish()
		p.phase = ev.Phase
		p.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(ev.Phase),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
		)
	}
	if err := p.bar.Set(ev.Done); err != nil {
		logrus.Warn("progress: ", err)
	}
}

// finish completes the current bar, if any
func (p *progressBars) finish() {
	if p.bar == nil || p.bar.IsFinished() {
		return
	}
	if err := p.bar.Finish(); err != nil {
		logrus.Warn("progress: ", err)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfg.TTY, "tty", "p", flash.DefaultTTY, "serial port connected to the chip")
	f.IntVarP(&cfg.BootloaderBaud, "baud", "b", flash.DefaultBaud, "baud rate to use")
	f.DurationVarP(&cfg.ReadTimeout, "timeout", "t", flash.DefaultReadTimeout, "how long to wait for each reply")
	f.IntVar(&cfg.ResetGPIO, "reset-gpio", 0, "GPIO wired to the chip's RESET pin (0 to disable)")
	f.IntVar(&cfg.ISPGPIO, "isp-gpio", 0, "GPIO wired to the chip's ISP entry pin (0 to disable)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log serial traffic")

	rootCmd.Flags().BoolVar(&strictVerify, "strict-verify", false, "do not start the image if any block fails verification")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw progress bars")
}
