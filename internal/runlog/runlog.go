// Package runlog writes the per-run failure log: one appended line per
// isolated error, formatted `timestamp -- message [key=value ...]`. The
// file outlives the run; the backing store does not.
package runlog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// lineFormatter renders entries in the run-log line format.
type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" -- ")
	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// New opens (appending) the run log at path and returns a logger bound
// to it plus a close func. Console output stays on the main logger;
// this one only ever sees isolated-failure detail.
func New(path string) (*logrus.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open run log: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(lineFormatter{})
	logger.SetLevel(logrus.DebugLevel)

	return logger, f.Close, nil
}
