package logging

import (
	"io"
	"testing"

	"bipv-docs/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	assert.NoError(t, Setup("debug", true))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.Error(t, Setup("chatty", false))
}

func TestMetricsHookCountsErrors(t *testing.T) {
	metrics := utils.NewMetricsCollector()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(NewMetricsHook(metrics))

	logger.Info("fine")
	logger.Warn("hmm")
	logger.WithField("documentNo", "671").Error("broken")

	assert.Equal(t, uint64(1), metrics.Snapshot().Errors)
}
