package cmd

import (
	"context"
	"fmt"
	"strings"

	"pipelinehealth/app"

	"github.com/spf13/cobra"
)

func newJobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "定时任务相关操作",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       fmt.Sprintf("run <%s>", strings.Join(app.JobNames(), "|")),
		Short:     "立即执行一次指定任务",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: app.JobNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInfra()
			if err != nil {
				return err
			}
			defer in.Close(context.Background())

			if err := app.NewApp(in).RunJob(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("任务 %s 执行失败: %w", args[0], err)
			}
			in.Logger.WithField("job", args[0]).Info("任务执行完成")
			return nil
		},
	})
	return cmd
}
