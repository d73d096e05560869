// Package runlog installs the process-wide run logger: one file sink per
// run at debug granularity plus a coarser console sink. The rest of the
// program logs through github.com/grailbio/base/log as usual; runlog only
// decides where those records land and how they are formatted.
package runlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Logger is the handle returned by Init. It owns the log file.
type Logger struct {
	name    string
	file    io.WriteCloser
	console io.Writer
	now     func() time.Time

	mu sync.Mutex
}

var (
	initMu    sync.Mutex
	installed bool
)

// Init opens filePath for appending and installs the run logger as the
// process outputter. Records at every level go to the file; only errors
// reach the console. Init may be called once per process; a second call is
// an error, there is no implicit re-initialization.
func Init(name, filePath string) (*Logger, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if installed {
		return nil, errors.New("runlog: logger already initialized")
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log file %s", filePath)
	}
	l := &Logger{name: name, file: f, console: os.Stderr, now: time.Now}
	log.SetOutputter(l)
	installed = true
	return l, nil
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// Level implements log.Outputter. The file sink wants everything, so the
// outputter accepts the finest level and fans out per record.
func (l *Logger) Level() log.Level {
	return log.Debug
}

// Output implements log.Outputter.
func (l *Logger) Output(_ int, level log.Level, s string) error {
	line := fmt.Sprintf("%s - %s - %s - %s\n",
		l.now().Format("2006/01/02 15:04:05"), l.name, levelName(level), s)
	l.mu.Lock()
	defer l.mu.Unlock()
	if level <= log.Error {
		if _, err := io.WriteString(l.console, line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(l.file, line)
	return err
}

func levelName(level log.Level) string {
	switch {
	case level <= log.Error:
		return "ERROR"
	case level == log.Info:
		return "INFO"
	default:
		return "DEBUG"
	}
}
