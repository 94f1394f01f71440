package configwatcher

import (
	"context"
	"fmt"
	"learner_dashboard/internal/config"
	"learner_dashboard/pkg/logger"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = time.Second

// Watcher 监听配置目录，config.yaml 变化后重新加载；加载或校验失败时保留旧配置
type Watcher struct {
	Dir      string
	File     string
	Debounce time.Duration
	Load     func(dir string) (*config.Config, error)
	Apply    func(*config.Config)
}

func New(dir string, apply func(*config.Config)) *Watcher {
	return &Watcher{
		Dir:      dir,
		File:     "config.yaml",
		Debounce: defaultDebounce,
		Load:     config.LoadConfig,
		Apply:    apply,
	}
}

// 编辑器通常先写临时文件再改名，所以监听目录而不是文件本身
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.File {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	cfg, err := w.Load(w.Dir)
	if err != nil {
		logger.Log.Error("配置重新加载失败，继续使用旧配置", zap.String("dir", w.Dir), zap.Error(err))
		return
	}
	w.Apply(cfg)
}

// Run 阻塞直到 ctx 取消；只有初始化监听失败时返回错误
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer fw.Close()

	dir, err := filepath.Abs(w.Dir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debounce := time.NewTimer(w.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if pending && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(w.Debounce)
			pending = true

		case <-debounce.C:
			pending = false
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Log.Warn("配置监听错误", zap.Error(err))
		}
	}
}
