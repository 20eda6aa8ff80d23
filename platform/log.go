package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// plainFormatter renders "[timestamp] [level] message" lines.
type plainFormatter struct{}

func (f *plainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	b.WriteString(fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message))
	return b.Bytes(), nil
}

// InitAppLogger builds the application logger writing to a dated log file
// and stderr. Falls back to stderr only if the file cannot be opened.
func InitAppLogger(logPath string, name string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&plainFormatter{})

	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		logger.Errorf("create log dir: %v", err)
		return logger
	}

	day := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s/%s-%s.log", logPath, day, name)
	logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		logger.Errorf("open log file: %v", err)
		return logger
	}
	logger.SetOutput(io.MultiWriter(logFile, os.Stderr))
	return logger
}

var Logger = InitAppLogger("./log", "chatrelay")
