package magick

import (
	"sync"

	"gopkg.in/gographics/imagick.v2/imagick"
)

// LogLevel log level
type LogLevel int

// LogLevel enum
const (
	LogLevelError LogLevel = iota
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

// LoggingHandlerFunction logging handler function
type LoggingHandlerFunction func(op string, level LogLevel, message string)

var (
	lock     sync.Mutex
	startups int

	currentLoggingHandlerFunction = noopLoggingHandler
	currentLoggingVerbosity       = LogLevelWarning
)

// Startup initializes the MagickWand environment.
// Calls are reference counted, only the first one runs MagickWandGenesis.
func Startup() {
	lock.Lock()
	defer lock.Unlock()
	startups++
	if startups == 1 {
		imagick.Initialize()
		log("startup", LogLevelDebug, "MagickWand genesis")
	}
}

// Shutdown releases the MagickWand environment once every Startup call
// has been paired with a Shutdown.
func Shutdown() {
	lock.Lock()
	defer lock.Unlock()
	if startups <= 0 {
		return
	}
	startups--
	if startups == 0 {
		imagick.Terminate()
		log("shutdown", LogLevelDebug, "MagickWand terminus")
	}
}

// IsStarted reports if the MagickWand environment is initialized
func IsStarted() bool {
	lock.Lock()
	defer lock.Unlock()
	return startups > 0
}

// SetLogging set logging handler and verbosity
func SetLogging(handler LoggingHandlerFunction, verbosity LogLevel) {
	lock.Lock()
	defer lock.Unlock()
	if handler != nil {
		currentLoggingHandlerFunction = handler
	}
	currentLoggingVerbosity = verbosity
}

func noopLoggingHandler(_ string, _ LogLevel, _ string) {
}

func log(op string, level LogLevel, message string) {
	if level <= currentLoggingVerbosity {
		currentLoggingHandlerFunction(op, level, message)
	}
}
