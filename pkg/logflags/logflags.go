// Package logflags routes the toolkit's optional debug logging. Each
// layer gets its own flaggable logrus logger; with the flag off the
// logger is still returned but set to a level that suppresses
// everything below panic.
package logflags

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var tracer = false
var mem = false
var maps = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Tracer returns true if trace control operations should be logged.
func Tracer() bool {
	return tracer
}

// TracerLogger returns a logger for the execution control layer.
func TracerLogger() *logrus.Entry {
	return makeLogger(tracer, logrus.Fields{"layer": "tracer"})
}

// Mem returns true if scatter/gather memory transfers should be
// logged.
func Mem() bool {
	return mem
}

// MemLogger returns a logger for the memory transfer layer.
func MemLogger() *logrus.Entry {
	return makeLogger(mem, logrus.Fields{"layer": "mem"})
}

// Maps returns true if mapping listing parse faults should be logged.
func Maps() bool {
	return maps
}

// MapsLogger returns a logger for the mapping parser layer.
func MapsLogger() *logrus.Entry {
	return makeLogger(maps, logrus.Fields{"layer": "maps"})
}

var errLogstrWithoutLog = errors.New("log output specified without logging enabled")

// Setup sets the layer flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "tracer"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "tracer":
			tracer = true
		case "mem":
			mem = true
		case "maps":
			maps = true
		default:
			return errors.New("invalid log layer " + logcmd)
		}
	}
	return nil
}
