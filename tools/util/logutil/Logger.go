package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/whatap/golib/util/ansi"
	"github.com/whatap/golib/util/dateutil"
	"github.com/whatap/golib/util/hmap"
)

const (
	LOG_LEVEL_DEBUG = 0
	LOG_LEVEL_INFO  = 1
	LOG_LEVEL_WARN  = 2
	LOG_LEVEL_ERROR = 3
)

// Logger is a tag-first file logger. Messages with the same tag are
// suppressed within the configured interval so a failing loop cannot
// flood the log file.
type Logger struct {
	lastLog *hmap.StringLongLinkedMap
	logID   string
	lock    sync.Mutex
	logfile *os.File

	last         int64
	lastDataUnit int64

	confLogInterval        int
	confLogRotationEnabled bool
	confLogKeepDays        int

	Level int
}

func NewLogger() *Logger {
	l := new(Logger)
	l.lastLog = hmap.NewStringLongLinkedMap().SetMax(1000)
	l.logID = "targetview"
	l.confLogInterval = 10
	l.confLogRotationEnabled = true
	l.confLogKeepDays = 7
	l.Level = LOG_LEVEL_INFO

	go l.run()

	return l
}

var logger *Logger = NewLogger()

func GetLogger() *Logger {
	return logger
}

// GetLogHome returns the directory holding the logs/ subdirectory.
func GetLogHome() string {
	home := os.Getenv("TARGETVIEW_HOME")
	if home == "" {
		home = "."
	}
	return home
}

func SetLevel(lv int) {
	logger.Level = lv
}

func SetLogInterval(sec int) {
	logger.confLogInterval = sec
}

func SetLogRotationEnabled(b bool) {
	logger.confLogRotationEnabled = b
}

func SetLogKeepDays(days int) {
	logger.confLogKeepDays = days
}

// Println logs a message under the given tag, subject to per-tag
// interval suppression.
func Println(tag string, v ...interface{}) {
	logger.println(tag, fmt.Sprint(v...))
}

// Printf logs a formatted message under the given tag, subject to
// per-tag interval suppression.
func Printf(tag string, format string, v ...interface{}) {
	logger.println(tag, fmt.Sprintf(format, v...))
}

func Infoln(tag string, v ...interface{}) {
	logger.info(tag, fmt.Sprint(v...))
}

func Infof(tag string, format string, v ...interface{}) {
	logger.info(tag, fmt.Sprintf(format, v...))
}

func Warnln(tag string, v ...interface{}) {
	logger.warn(tag, fmt.Sprint(v...))
}

func Warnf(tag string, format string, v ...interface{}) {
	logger.warn(tag, fmt.Sprintf(format, v...))
}

// Errorln always logs; errors are never suppressed.
func Errorln(tag string, v ...interface{}) {
	log.Println(ansi.Red(logger.build(tag, fmt.Sprint(v...))))
}

func Errorf(tag string, format string, v ...interface{}) {
	log.Println(ansi.Red(logger.build(tag, fmt.Sprintf(format, v...))))
}

func Debugln(tag string, v ...interface{}) {
	logger.debug(tag, fmt.Sprint(v...))
}

func Debugf(tag string, format string, v ...interface{}) {
	logger.debug(tag, fmt.Sprintf(format, v...))
}

func (this *Logger) println(tag, message string) {
	if this.checkOk(tag, this.confLogInterval) == false {
		return
	}
	log.Println(this.build(tag, message))
}

func (this *Logger) info(tag, message string) {
	if this.Level > LOG_LEVEL_INFO {
		return
	}
	this.println(tag, message)
}

func (this *Logger) warn(tag, message string) {
	if this.Level > LOG_LEVEL_WARN {
		return
	}
	this.println(tag, message)
}

func (this *Logger) debug(tag, message string) {
	if this.Level > LOG_LEVEL_DEBUG {
		return
	}
	log.Println(this.build(tag, message))
}

// build prefixes the message with the tag and call site.
func (this *Logger) build(tag, message string) string {
	pc, file, line, ok := runtime.Caller(3)
	if !ok {
		return fmt.Sprintf("[%s] %s", tag, message)
	}
	fileParts := strings.Split(file, "/")
	filename := fileParts[len(fileParts)-1]
	funcName := filepath.Base(runtime.FuncForPC(pc).Name())

	return fmt.Sprintf("[%s](%s:%d)(%s) %s", tag, filename, line, funcName, message)
}

func (this *Logger) checkOk(tag string, sec int) bool {
	if sec > 0 {
		last := this.lastLog.Get(tag)
		now := dateutil.Now()
		if now < (last + int64(sec)*1000) {
			return false
		}
		this.lastLog.Put(tag, now)
	}
	return true
}

func (this *Logger) openFile() {
	defer func() {
		if r := recover(); r != nil {
			log.Println("LOGGER", "openFile recover", r)
		}
	}()

	if this.logfile != nil {
		return
	}

	home := GetLogHome()
	logDir := filepath.Join(home, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		os.Mkdir(logDir, os.ModePerm)
	}

	var name string
	if this.confLogRotationEnabled {
		name = fmt.Sprintf("%s-%s.log", this.logID, dateutil.YYYYMMDD(dateutil.Now()))
	} else {
		name = fmt.Sprintf("%s.log", this.logID)
	}
	file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		// Keep logging to stdout only.
		log.SetOutput(os.Stdout)
		return
	}
	this.logfile = file

	log.SetOutput(io.MultiWriter(this.logfile, os.Stdout))
	log.SetFlags(log.LstdFlags)
}

func (this *Logger) run() {
	this.last = dateutil.Now()
	this.lastDataUnit = dateutil.GetDateUnitNow()

	for {
		this.process()
		time.Sleep(10 * time.Second)
	}
}

func (this *Logger) process() {
	this.lock.Lock()
	defer func() {
		this.lock.Unlock()
		if r := recover(); r != nil {
			log.Println("LOGGER", "process recover", r)
		}
	}()

	now := dateutil.Now()
	if now > this.last+dateutil.MILLIS_PER_MINUTE {
		this.last = now
		this.clearOldLog()
	}

	// Reopen on date change so rotation picks up a fresh file.
	if this.lastDataUnit != dateutil.GetDateUnitNow() || this.logfile == nil {
		if this.logfile != nil {
			this.logfile.Close()
		}
		this.logfile = nil
		this.lastDataUnit = dateutil.GetDateUnitNow()
	}
	this.openFile()
}

func (this *Logger) clearOldLog() {
	if this.confLogRotationEnabled == false {
		return
	}
	if this.confLogKeepDays <= 0 {
		return
	}

	nowUnit := dateutil.GetDateUnitNow()
	searchDir := filepath.Join(GetLogHome(), "logs")

	files, _ := os.ReadDir(searchDir)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		if !strings.HasPrefix(name, this.logID+"-") || !strings.HasSuffix(name, ".log") {
			continue
		}

		datePart := strings.TrimSuffix(strings.TrimPrefix(name, this.logID+"-"), ".log")
		d := dateutil.GetYmdTime(datePart)
		if d == 0 {
			continue
		}
		fileUnit := dateutil.GetDateUnit(d)
		if nowUnit-fileUnit > int64(this.confLogKeepDays) {
			os.Remove(filepath.Join(searchDir, name))
		}
	}
}
