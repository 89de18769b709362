package log

import (
	"io/ioutil"
	"os"

	logging "github.com/op/go-logging"
)

var (
	logger      = logging.MustGetLogger("vigiconf")
	logfile     *os.File
	initialized = false

	// Debug proxy
	Debug = logger.Debug
	// Debugf proxy
	Debugf = logger.Debugf
	// Info proxy
	Info = logger.Info
	// Infof proxy
	Infof = logger.Infof
	// Warning proxy
	Warning = logger.Warning
	// Warningf proxy
	Warningf = logger.Warningf
	// Error proxy
	Error = logger.Error
	// Errorf proxy
	Errorf = logger.Errorf
)

// Initialize logger. With debug switched off only INFO and above
// messages reach the log file
func Initialize(logFilename string, debug bool) error {
	if logFilename == "" {
		setupNullLogger()
		return nil
	}

	f, err := os.OpenFile(logFilename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		setupNullLogger()
		return err
	}
	if logfile != nil {
		logfile.Close()
	}
	logfile = f

	backend := logging.NewLogBackend(logfile, "", 0)
	format := logging.MustStringFormatter(
		`[%{time:15:04:05.000}] %{level:.4s} %{message}`,
	)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	logging.SetBackend(backendFormatter)
	SetDebug(debug)
	logger.Debug("logger initialized")
	initialized = true
	return nil
}

// SetDebug switches the log level between DEBUG and INFO
func SetDebug(debug bool) {
	if debug {
		logging.SetLevel(logging.DEBUG, "")
	} else {
		logging.SetLevel(logging.INFO, "")
	}
}

// Initialized returns true if the logger writes to a file
func Initialized() bool {
	return initialized
}

func setupNullLogger() {
	backend := logging.NewLogBackend(ioutil.Discard, "", 0)
	logging.SetBackend(backend)
	initialized = false
}
