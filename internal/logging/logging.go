package logging

import (
	"os"

	"bipv-docs/internal/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger.
func Setup(level string, json bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(lvl)
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// MetricsHook counts error-level entries in a MetricsCollector.
type MetricsHook struct {
	metrics *utils.MetricsCollector
	levels  []logrus.Level
}

func NewMetricsHook(metrics *utils.MetricsCollector) *MetricsHook {
	return &MetricsHook{
		metrics: metrics,
		levels:  nil,
	}
}

func (hook *MetricsHook) Levels() []logrus.Level {
	if hook.levels == nil {
		return []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		}
	}

	return hook.levels
}

func (hook *MetricsHook) Fire(entry *logrus.Entry) error {
	hook.metrics.IncrementErrors()
	return nil
}
