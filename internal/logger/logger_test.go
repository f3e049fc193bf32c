package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq/internal/config"
)

func TestNew_Levels(t *testing.T) {
	l, c, err := New(config.LogConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	l, _, err = New(config.LogConfig{Level: "loud", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, l.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}

func TestNew_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "supplyq.log")
	l, c, err := New(config.LogConfig{Level: "info", Format: "json", Output: "file", FilePath: p, MaxSize: 1})
	require.NoError(t, err)
	l.WithField("task_id", "T1").Info("claimed")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(data), `"task_id":"T1"`)
	require.Contains(t, string(data), `"message":"claimed"`)
}

func TestNew_Invalid(t *testing.T) {
	_, _, err := New(config.LogConfig{Format: "xml"})
	require.Error(t, err)
	_, _, err = New(config.LogConfig{Output: "syslog"})
	require.Error(t, err)
	_, _, err = New(config.LogConfig{Output: "file"})
	require.Error(t, err)
}
