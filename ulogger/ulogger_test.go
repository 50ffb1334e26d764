package ulogger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/ordishs/gocore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))

		lines = append(lines, m)
	}

	return lines
}

func TestZeroLogger_LogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
	}{
		{"DEBUG", []string{"debug", "info", "warn", "error"}},
		{"INFO", []string{"info", "warn", "error"}},
		{"WARN", []string{"warn", "error"}},
		{"ERROR", []string{"error"}},
		{"bogus", []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := ulogger.New("test", ulogger.WithWriter(&buf), ulogger.WithLevel(tt.level), ulogger.WithPretty(false))

			logger.Debugf("debug %d", 1)
			logger.Infof("info %d", 2)
			logger.Warnf("warn %d", 3)
			logger.Errorf("error %d", 4)

			lines := jsonLines(t, &buf)
			levels := make([]string, 0, len(lines))

			for _, l := range lines {
				levels = append(levels, l["level"].(string))
				assert.Equal(t, "test", l["service"])
			}

			assert.Equal(t, tt.expected, levels)
		})
	}
}

func TestZeroLogger_Message(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.NewZeroLogger("balances", ulogger.WithWriter(&buf), ulogger.WithPretty(false))
	logger.Infof("processed %d blocks", 170)

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "processed 170 blocks", lines[0]["message"])
	assert.Equal(t, int(gocore.INFO), logger.LogLevel())
}

func TestZeroLogger_Pretty(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("pretty", ulogger.WithWriter(&buf), ulogger.WithPretty(true))
	logger.Warnf("careful")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "pretty")
	assert.Contains(t, out, "careful")
}

func TestZeroLogger_NewAndDuplicate(t *testing.T) {
	var buf bytes.Buffer

	parent := ulogger.New("parent", ulogger.WithWriter(&buf), ulogger.WithLevel("WARN"), ulogger.WithPretty(false))

	child := parent.New("child")
	child.Infof("hidden")
	child.Warnf("shown")

	dup := parent.Duplicate(ulogger.WithLevel("DEBUG"))
	dup.Debugf("debug shown")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "child", lines[0]["service"])
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "debug shown", lines[1]["message"])
	assert.Equal(t, int(gocore.WARN), parent.LogLevel())
}

func TestNew_GoCoreLogger(t *testing.T) {
	logger := ulogger.New("test", ulogger.WithLoggerType("gocore"), ulogger.WithLevel("DEBUG"))

	_, ok := logger.(*ulogger.GoCoreLogger)
	require.True(t, ok)

	child := logger.New("child")
	require.NotNil(t, child)
	require.NotNil(t, logger.Duplicate(ulogger.WithSkipFrame(1)))
}

func TestInitLogger(t *testing.T) {
	t.Setenv("logLevel", "ERROR")
	t.Setenv("logger_type", "zerolog")

	tSettings := settings.NewSettings()
	logger := ulogger.InitLogger("balances", tSettings)

	_, ok := logger.(*ulogger.ZLoggerWrapper)
	require.True(t, ok)
	assert.Equal(t, int(gocore.ERROR), logger.LogLevel())
}

func TestErrorTestLogger(t *testing.T) {
	logger := ulogger.NewErrorTestLogger(t)

	logger.Infof("ignored")
	logger.Errorf("audit write failed for block %d", 7)
	logger.Fatalf("rename failed")

	assert.Equal(t, []string{"audit write failed for block 7"}, logger.Errors())
	assert.Equal(t, []string{"rename failed"}, logger.Fatals())
	assert.Same(t, logger, logger.New("x"))
}

func TestTestLogger(t *testing.T) {
	var logger ulogger.Logger = ulogger.TestLogger{}

	logger.Fatalf("does not exit")
	assert.Equal(t, 0, logger.LogLevel())
	assert.Equal(t, logger, logger.Duplicate())
}
