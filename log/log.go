// Package log is a minimal leveled logging facade. The engine is meant to be
// embedded in a terminal UI, so the default sink writes to the standard
// library logger and embedders can splice in their own Logger to redirect
// output away from the screen.
package log

import "log"

var enabled = false

// SetVerbose enables or disables the default sink. Quiet by default because
// stray log lines corrupt a terminal dashboard.
func SetVerbose(v bool) {
	enabled = v
}

// Logger is a set of swappable level functions. Any nil member is a no-op.
type Logger struct {
	Tracef func(format string, args ...interface{})
	Debugf func(format string, args ...interface{})
	Infof  func(format string, args ...interface{})
	Warnf  func(format string, args ...interface{}) error
	Errorf func(format string, args ...interface{}) error
}

var logger = Logger{
	Tracef: defaultPrintf("[TRACE] "),
	Debugf: defaultPrintf("[DEBUG] "),
	Infof:  defaultPrintf("[INFO] "),
	Warnf:  defaultErrorPrintf("[WARN] "),
	Errorf: defaultErrorPrintf("[ERROR] "),
}

// SetLogger replaces the active logger.
func SetLogger(l Logger) {
	logger = l
}

func Tracef(format string, args ...interface{}) {
	if logger.Tracef != nil {
		logger.Tracef(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if logger.Debugf != nil {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if logger.Infof != nil {
		logger.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) error {
	if logger.Warnf != nil {
		return logger.Warnf(format, args...)
	}
	return nil
}

func Errorf(format string, args ...interface{}) error {
	if logger.Errorf != nil {
		return logger.Errorf(format, args...)
	}
	return nil
}

func defaultPrintf(prefix string) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		if enabled {
			log.Printf(prefix+format, args...)
		}
	}
}

func defaultErrorPrintf(prefix string) func(format string, args ...interface{}) error {
	return func(format string, args ...interface{}) error {
		if enabled {
			log.Printf(prefix+format, args...)
		}
		return nil
	}
}
