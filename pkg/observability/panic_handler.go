package observability

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with its stack. It must be
// called directly in a defer statement:
//
//	go func() {
//	    defer observability.RecoverPanic(log, "plugin watcher")
//	    watcher.Run(ctx)
//	}()
//
// The panic is not re-raised.
func RecoverPanic(log *logrus.Logger, where string) {
	if r := recover(); r != nil {
		log.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": where,
		}).Error("PANIC recovered")
	}
}
