package common

import (
	"bytes"
	"log"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
)

// TestLoggerLevels tests that messages below the level are dropped
func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := &msgtLogger{name: "transport", level: logger.WARNING, logger: log.New(&buf, "", 0)}

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warningf("warning %d", 3)
	l.Errorf("error %d", 4)

	assert.Equal(t, "WARN  | transport | warning 3\nERROR | transport | error 4\n", buf.String())

	buf.Reset()
	l.SetLevel(logger.DEBUG)
	l.Debugf("now visible")
	assert.Contains(t, buf.String(), "DEBUG | transport | now visible")
}

// TestLoggerPanicf tests that Panicf panics regardless of the level
func TestLoggerPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := &msgtLogger{name: "server", level: logger.CRITICAL, logger: log.New(&buf, "", 0)}

	assert.PanicsWithValue(t, "id limit 7", func() { l.Panicf("id limit %d", 7) })
	assert.Contains(t, buf.String(), "PANIC | server")
}

// TestInitLoggers tests installing the factory with valid and invalid levels
func TestInitLoggers(t *testing.T) {
	assert.NoError(t, InitLoggers("error"))
	assert.NoError(t, InitLoggers("info"))
	assert.Error(t, InitLoggers("verbose"))
}
