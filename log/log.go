// Package log writes daily text logs, error logs and structured events.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/toon-format/toon-go"
)

var (
	logFile    *dailyFile
	errorsFile *dailyFile
	eventsFile *dailyFile
	remote     *shipper

	quiet bool
	onLog func(s string)

	// if true, Verbosef() will log messages
	Verbose bool

	// SessionID identifies this process in events
	SessionID = uuid.New().String()
)

type Config struct {
	// directory where log files are stored
	// each log type (regular, errors, events) has its own subdirectory
	Dir string
	// if true, don't print to stdout. Set it when a UI owns the terminal
	Quiet bool
	// if set, errors and events are also POSTed to
	// RemoteURL + "/errors" and RemoteURL + "/events"
	RemoteURL    string
	RemoteAPIKey string
	// called for every Logf() call
	OnLog func(s string)
}

// Init initializes the logging system
func Init(config *Config) {
	Close()
	quiet = config.Quiet
	onLog = config.OnLog
	if config.Dir != "" {
		logFile = newDailyFile(filepath.Join(config.Dir, "log"))
		errorsFile = newDailyFile(filepath.Join(config.Dir, "errors"))
		eventsFile = newDailyFile(filepath.Join(config.Dir, "events"))
	}
	if config.RemoteURL != "" {
		remote = newShipper(config.RemoteURL, config.RemoteAPIKey)
	}
}

// SetQuiet enables or disables printing to stdout
func SetQuiet(v bool) {
	quiet = v
}

// Close flushes and closes log files. Queued remote data is sent first.
func Close() {
	remote.stop()
	remote = nil
	logFile.Close()
	errorsFile.Close()
	eventsFile.Close()
	logFile, errorsFile, eventsFile = nil, nil, nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if !quiet {
		fmt.Print(s)
	}
	logFile.Write([]byte(s))
	if onLog != nil {
		onLog(s)
	}
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// Fatalf logs and exits the process
func Fatalf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	Errorf("%s", s)
	Close()
	fmt.Fprint(os.Stderr, s)
	os.Exit(1)
}

func getCallstack(skip int) string {
	var callers [32]uintptr
	n := runtime.Callers(skip+2, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.File + ":" + strconv.Itoa(frame.Line) + "\n")
		if !more {
			break
		}
	}
	return sb.String()
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = s + getCallstack(1)
	Logf("%s", s)
	errorsFile.Write([]byte(s))
	remote.send("/errors", []byte(s), mimePlainText)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%v", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// panics if v is of complex type
func keyToStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	kind := reflect.TypeOf(v).Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer, reflect.Func:
		panic(fmt.Sprintf("log: event key is of kind %v", kind))
	}
	return fmt.Sprintf("%v", v)
}

// formatEvent returns event in the format:
// "--- ${timestamp_in_unix_epoch_ms} ${name} ${session}\n${toon}\n"
func formatEvent(t time.Time, name string, vals []any) []byte {
	n := len(vals)
	if n%2 != 0 {
		panic(fmt.Sprintf("log: event '%s' has odd number of values: %d", name, n))
	}
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			m[keyToStr(vals[i])] = vals[i+1]
		}
		var err error
		d, err = toon.Marshal(m)
		if err != nil {
			d = []byte("error: " + err.Error())
		}
	}
	hdr := fmt.Sprintf("--- %d %s %s\n", t.UnixMilli(), name, SessionID)
	res := append([]byte(hdr), d...)
	if len(d) == 0 || d[len(d)-1] != '\n' {
		res = append(res, '\n')
	}
	return res
}

// Event logs event name with key / value pairs encoded as toon
func Event(name string, vals ...any) {
	d := formatEvent(time.Now().UTC(), name, vals)
	eventsFile.Write(d)
	remote.send("/events", d, mimePlainText)
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
