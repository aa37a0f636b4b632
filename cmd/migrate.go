package cmd

import (
	"context"
	"fmt"

	"pipelinehealth/app"
	"pipelinehealth/pkg/db"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移，可选创建管理员账号",
		Example: `  pipelinehealth migrate --env prod
  pipelinehealth migrate --admin-email admin@example.com --admin-username admin --admin-password changeme`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInfra()
			if err != nil {
				return err
			}
			defer in.Close(context.Background())

			if err := db.AutoMigrate(in.DB); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			if email == "" {
				return nil
			}

			appRoot := app.NewApp(in)
			created, err := appRoot.UserModule.Client.EnsureAdmin(cmd.Context(), email, username, password)
			if err != nil {
				return fmt.Errorf("创建管理员失败: %w", err)
			}
			if created {
				in.Logger.WithField("email", email).Info("已创建管理员账号")
			} else {
				in.Logger.WithField("email", email).Info("管理员账号已存在，跳过")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "admin-email", "", "管理员邮箱，为空则不创建")
	cmd.Flags().StringVar(&username, "admin-username", "admin", "管理员用户名")
	cmd.Flags().StringVar(&password, "admin-password", "", "管理员密码")
	cmd.MarkFlagsRequiredTogether("admin-email", "admin-password")
	return cmd
}
