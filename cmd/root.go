// Package cmd 命令行入口：serve、migrate、job run
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pipelinehealth/base"
	"pipelinehealth/pkg/core/start"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand --env 与 --config 也可由 PIPELINEHEALTH_ENV / PIPELINEHEALTH_CONFIG 指定
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pipelinehealth",
		Short:         "CI/CD 流水线健康看板服务",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pflags := cmd.PersistentFlags()
	pflags.String("env", "dev", "环境配置 (dev, prod, test等)")
	pflags.String("config", "", "配置文件路径，默认为 ./resources/{env}.yaml")

	viper.SetEnvPrefix(start.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("env", pflags.Lookup("env"))
	_ = viper.BindPFlag("config", pflags.Lookup("config"))

	cmd.AddCommand(newServeCommand(), newMigrateCommand(), newJobCommand())
	return cmd
}

// Execute main 调用
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configPath 未指定配置文件时使用 ./resources/{env}.yaml
func configPath() (env, path string) {
	env = viper.GetString("env")
	path = viper.GetString("config")
	if path == "" {
		path = filepath.Join("resources", env+".yaml")
	}
	return env, path
}

func loadInfra() (*base.Infra, error) {
	env, path := configPath()
	in, err := base.NewInfra(path, env)
	if err != nil {
		return nil, fmt.Errorf("初始化失败: %w", err)
	}
	return in, nil
}
