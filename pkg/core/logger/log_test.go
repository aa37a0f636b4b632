package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/consts"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	log := InitLogger(config.LogConfig{Level: "warn", Format: "json", File: file})

	assert.Equal(t, logrus.WarnLevel, log.Logger.GetLevel())

	log.WithEntryName("Test").Warn("写入文件")
	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "写入文件")
	assert.Contains(t, string(content), `"EntryName":"Test"`)
}

func TestWithTrace(t *testing.T) {
	log := GetLogger()

	ctx := context.WithValue(context.Background(), consts.TraceKey, "trace-1")
	entry := log.WithTrace(ctx)
	assert.Equal(t, "trace-1", entry.Data["TraceId"])

	generated := log.WithTrace(context.Background())
	assert.NotEmpty(t, generated.Data["TraceId"])
}

func TestWithFields(t *testing.T) {
	log := GetLogger().WithFields(struct {
		PipelineID int64  `json:"pipelineId"`
		Period     string `json:"period"`
	}{PipelineID: 3, Period: "DAILY"})

	assert.Equal(t, float64(3), log.Data["pipelineId"])
	assert.Equal(t, "DAILY", log.Data["period"])
	assert.Nil(t, GetLogger().WithErr(nil).Data["Err"])
}
