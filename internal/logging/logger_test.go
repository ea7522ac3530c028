package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Options{Level: "debug"})

	log.WithField("uri", "mysql://root:hunter2@db/school").Info("connecting with api_key=gsk_0123456789abcdef")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "gsk_0123456789abcdef")
	assert.Contains(t, out, "mysql://*:*@db/school")
}

func TestNewLoggerLevels(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, NewLogger(nil, Options{Level: "nonsense"}).GetLevel())
	assert.Equal(t, logrus.WarnLevel, NewLogger(nil, Options{Level: "warn"}).GetLevel())
	assert.Equal(t, logrus.DebugLevel, NewLogger(nil, Options{Level: "warn", Verbose: true}).GetLevel())
}
