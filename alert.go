package forkjoin

import (
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Alert channels.  Each bit selects one runtime subsystem; the active
// set is read from the FORKJOIN_ALERT environment variable (a decimal
// or 0x-prefixed bitmask).  All channels are off by default.
const (
	alertFiber uint32 = 1 << iota
	alertSync
	alertSched
	alertSteal
	alertExcept
	alertReturn
	alertBoot
	alertCFrame
)

var (
	alertOnce  sync.Once
	alertMask  uint32
	alertEvlog zerolog.Logger
)

func alertSetup() {
	alertOnce.Do(func() {
		alertEvlog = zerolog.New(os.Stderr).With().Timestamp().Str("component", "forkjoin").Logger()
		if v := os.Getenv("FORKJOIN_ALERT"); v != "" {
			n, err := strconv.ParseUint(v, 0, 32)
			if err == nil {
				alertMask = uint32(n)
			}
		}
	})
}

// alertf emits a debug event on one alert channel.  worker is the
// worker id, or nobody for the boot thread.
func alertf(lvl uint32, worker int32, format string, args ...interface{}) {
	if alertMask&lvl == 0 {
		return
	}
	alertEvlog.Debug().Int32("worker", worker).Msgf(format, args...)
}

func alertEnabled(lvl uint32) bool { return alertMask&lvl != 0 }
