package logger

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerPicksLevelAndFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")

	dev := InitLogger("debug", true)
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter, "development logs are human readable")

	prod := InitLogger("warn", false)
	assert.Equal(t, logrus.WarnLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter, "production logs are structured")

	t.Setenv("LOG_LEVEL", "error")
	fromEnv := InitLogger("", false)
	assert.Equal(t, logrus.ErrorLevel, fromEnv.GetLevel(), "empty level falls back to LOG_LEVEL")
}

func TestInitLoggerHonorsJSONFormatOverride(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")

	dev := InitLogger("debug", true)
	assert.IsType(t, &logrus.JSONFormatter{}, dev.Formatter, "LOG_FORMAT=json wins even in development")
}

func TestGetLoggerInitializesOnFirstUse(t *testing.T) {
	Logger = nil

	log := GetLogger()
	require.NotNil(t, log)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Same(t, log, GetLogger(), "subsequent calls reuse the instance")
}

func TestFieldHelpersAttachContext(t *testing.T) {
	log := InitLogger("info", false)
	log.SetOutput(io.Discard)
	hook := logtest.NewLocal(log)

	require.Same(t, log, GetLogger(), "InitLogger installs the global logger")

	WithOptimization("req-42").Info("optimizing")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "req-42", hook.LastEntry().Data["request_id"])

	WithJob("job-7").Info("job accepted")
	assert.Equal(t, "job-7", hook.LastEntry().Data["job_id"])

	WithComponent("optimizer").Info("component online")
	assert.Equal(t, "optimizer", hook.LastEntry().Data["component"])

	assert.Len(t, hook.Entries, 3)
}
