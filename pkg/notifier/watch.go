package notifier

import (
	"context"

	"pipelinehealth/pkg/core/config"

	"github.com/fsnotify/fsnotify"
)

// Loader 重新读取通知配置
type Loader func() (config.NotifyConfig, error)

// Watch 配置文件变更时重新加载通知凭证，加载失败保留旧配置；阻塞直到 ctx 结束
func (d *Dispatcher) Watch(ctx context.Context, path string, load Loader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log := d.log.WithField("path", path)
	log.Info("开始监听通知配置变更")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// 编辑器保存时常以 rename 方式替换文件
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := load()
			if err != nil {
				log.WithErr(err).Error("通知配置重新加载失败，保留原配置")
				continue
			}
			d.Reload(cfg)
			log.Info("通知配置已重新加载")
			_ = watcher.Add(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithErr(err).Error("配置监听异常")
		}
	}
}

