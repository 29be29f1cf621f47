//go:build unit
// +build unit

package logging_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()
	logger := logging.NewLogger("test-component")

	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestGetLoggerIsStableForSameComponent(t *testing.T) {
	t.Parallel()
	a := logging.GetLogger("dispatcher")
	b := logging.GetLogger("dispatcher")

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Same(t, a, b)
}

func TestSetupLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *logging.LoggingConfig
	}{
		{
			name: "console only",
			config: &logging.LoggingConfig{
				Level:          "info",
				Format:         "text",
				ConsoleEnabled: true,
			},
		},
		{
			name: "file logging",
			config: &logging.LoggingConfig{
				Level:          "debug",
				Format:         "json",
				FileEnabled:    true,
				FilePath:       filepath.Join(t.TempDir(), "onvifd.log"),
				MaxFileSize:    1048576,
				BackupCount:    3,
				ConsoleEnabled: false,
			},
		},
		{
			name: "invalid level falls back to info",
			config: &logging.LoggingConfig{
				Level:          "not-a-level",
				ConsoleEnabled: true,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NoError(t, logging.SetupLogging(tt.config))
		})
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := logging.GenerateCorrelationID()
	assert.Len(t, id, 36)

	ctx := logging.WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, logging.GetCorrelationIDFromContext(ctx))
	assert.Empty(t, logging.GetCorrelationIDFromContext(context.Background()))
}

func TestLoggerWithFieldAndError(t *testing.T) {
	t.Parallel()

	logger := logging.NewLogger("media")
	withField := logger.WithField("profile_token", "MainProfile")
	require.NotNil(t, withField)

	withErr := logger.WithError(fmt.Errorf("boom"))
	require.NotNil(t, withErr)
}

func TestLoggerLevelManagement(t *testing.T) {
	t.Parallel()

	logger := logging.NewLogger("ptz")
	logger.SetLevel(logrus.DebugLevel)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	assert.True(t, logger.IsLevelEnabled(logrus.DebugLevel))
	logger.SetLevel(logrus.ErrorLevel)
	assert.False(t, logger.IsLevelEnabled(logrus.InfoLevel))
}

func TestLoggerConcurrentWrites(t *testing.T) {
	t.Parallel()

	logger := logging.NewLogger("concurrency")
	done := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		go func(id int) {
			logger.WithField("goroutine", fmt.Sprintf("%d", id)).Info("concurrent write")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}

func TestFileRotationCreatesLogFile(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "rotate.log")
	config := &logging.LoggingConfig{
		Level:       "info",
		Format:      "text",
		FileEnabled: true,
		FilePath:    logPath,
		MaxFileSize: 1,
		BackupCount: 2,
	}

	require.NoError(t, logging.SetupLogging(config))
	logger := logging.GetLogger("onvifd")
	for i := 0; i < 50; i++ {
		logger.Info("message that should trigger rotation")
	}

	time.Sleep(50 * time.Millisecond)
	_, err := os.Stat(logPath)
	assert.NoError(t, err)
}
