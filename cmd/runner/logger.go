package runner

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logger. Unknown levels fall back to
// info. Output goes to w so stdout stays reserved for results.
func SetupLogger(levelStr string, w io.Writer) *logrus.Entry {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logrus.NewEntry(logrus.StandardLogger())
}
