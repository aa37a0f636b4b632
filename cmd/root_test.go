package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	t.Cleanup(viper.Reset)

	root := NewRootCommand()
	require.NoError(t, root.PersistentFlags().Parse([]string{"--env", "prod"}))
	env, path := configPath()
	assert.Equal(t, "prod", env)
	assert.Equal(t, filepath.Join("resources", "prod.yaml"), path)

	t.Setenv("PIPELINEHEALTH_CONFIG", "/etc/pipelinehealth.yaml")
	_, path = configPath()
	assert.Equal(t, "/etc/pipelinehealth.yaml", path)
}

func TestJobRunRejectsUnknownJob(t *testing.T) {
	t.Cleanup(viper.Reset)

	root := NewRootCommand()
	root.SetArgs([]string{"job", "run", "yearly"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yearly")
}
