// Package assert holds the process-wide assertions switch.
//
// Missing calibration or a broken setup order is unsafe to continue past, so
// Fail logs a critical message and terminates the process. Test harnesses
// call Disable to receive the error instead.
package assert

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/xtxerr/spark/internal/logging"
)

var disabled atomic.Bool

// Exit terminates the process after a failed assertion. Tests may replace it.
var Exit = func() { os.Exit(1) }

// Disable turns failed assertions into returned errors.
func Disable() { disabled.Store(true) }

// Enable restores the terminate-on-failure policy.
func Enable() { disabled.Store(false) }

// Disabled reports whether assertions are disabled.
func Disabled() bool { return disabled.Load() }

// Fail logs err at critical level with args and, unless assertions are
// disabled, terminates the process. It returns err so callers can propagate
// it when the process keeps running.
func Fail(err error, args ...any) error {
	logging.Critical(err.Error(), args...)
	if !disabled.Load() {
		Exit()
	}
	return err
}

// Failf is Fail with a formatted message wrapping err.
func Failf(err error, format string, a ...any) error {
	return Fail(fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), err))
}
