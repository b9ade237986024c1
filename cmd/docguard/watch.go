package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	DebounceTime int
	Extensions   []string
	// Ignore holds root-relative slash paths docguard writes itself, such as
	// the --output report.
	Ignore []string
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceTime: 500,
		Extensions:   []string{".md", ".yaml", ".yml"},
	}
}

// Validate validates the WatchConfig and returns an error if invalid
func (c *WatchConfig) Validate() error {
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	if len(c.Extensions) == 0 {
		return errors.New("at least one extension must be watched")
	}
	return nil
}

// IgnoreOutput stops a report written to output from triggering the next
// run. Paths outside root are never watched anyway.
func (c *WatchConfig) IgnoreOutput(root, output string) {
	if output == "" {
		return
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(absRoot, absOut)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return
	}
	c.Ignore = append(c.Ignore, filepath.ToSlash(rel))
}

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run check whenever markdown or YAML changes",
	Long: `Watches the repository root and re-runs check after markdown or YAML
files change. Bursts of changes are debounced; excluded paths are ignored.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		watchConfig := getWatchConfigFromFlags(cmd)
		if err := watchConfig.Validate(); err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		watchConfig.IgnoreOutput(env.cfg.Root, env.output)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			presenter.Warning("Cancellation requested, shutting down...")
			cancel()
		}()

		if err := runWatchMode(ctx, env, watchConfig); err != nil {
			fatal(err, "Watch failed")
		}
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
	watchCmd.Flags().StringSlice("ext", defaults.Extensions, "File extensions that trigger a run")
}

// getWatchConfigFromFlags extracts watch configuration from command flags
func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	watchConfig := NewWatchConfig()
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		watchConfig.DebounceTime = debounceTime
	}
	if extensions, err := cmd.Flags().GetStringSlice("ext"); err == nil {
		watchConfig.Extensions = extensions
	}
	return watchConfig
}

// watchable reports whether a change to rel should trigger a run.
func watchable(cfg *config.Config, watchConfig *WatchConfig, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, ignored := range watchConfig.Ignore {
		if rel == ignored {
			return false
		}
	}
	if docs.MatchAny(cfg.Exclude, rel) || docs.MatchAny(docs.DefaultExclude, rel) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(rel))
	for _, e := range watchConfig.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// skipDir reports whether a directory is hidden or every path below it is
// excluded.
func skipDir(cfg *config.Config, rel string) bool {
	if rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(path.Base(rel), ".") {
		return true
	}
	probe := rel + "/_"
	return docs.MatchAny(cfg.Exclude, probe) || docs.MatchAny(docs.DefaultExclude, probe)
}

func runWatchMode(ctx context.Context, env *runEnv, watchConfig *WatchConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	root := env.cfg.Root
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if skipDir(env.cfg, rel) {
			logger.G(ctx).WithField("directory", rel).Debug("skipping ignored directory")
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
	if err != nil {
		return errors.Wrap(err, "failed to watch directories")
	}

	events := make(chan FileEvent)
	debouncedEvents := make(chan FileEvent)
	go debounceFileEvents(ctx, events, debouncedEvents, time.Duration(watchConfig.DebounceTime)*time.Millisecond)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				rel, err := filepath.Rel(root, event.Name)
				if err != nil {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if !skipDir(env.cfg, rel) {
							_ = watcher.Add(event.Name)
						}
						continue
					}
				}
				if !watchable(env.cfg, watchConfig, rel) {
					continue
				}
				select {
				case events <- FileEvent{Path: filepath.ToSlash(rel), Op: event.Op, Time: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.G(ctx).WithError(err).Error("error watching files")
			case <-ctx.Done():
				return
			}
		}
	}()

	runOnce := func() {
		r, err := runCheck(ctx, env.cfg, "")
		if err != nil {
			presenter.Error(err, "Check failed")
			return
		}
		env.start = time.Now()
		env.finish(ctx, "watch", r)
	}

	presenter.Info(fmt.Sprintf("Watching %s for changes... Press Ctrl+C to stop", root))
	runOnce()

	// A batch of debounced events collapses into a single run.
	pending := time.NewTimer(time.Hour)
	pending.Stop()
	for {
		select {
		case event := <-debouncedEvents:
			logger.G(ctx).WithFields(map[string]interface{}{
				"file":      event.Path,
				"operation": event.Op.String(),
			}).Debug("file change detected")
			presenter.Info(fmt.Sprintf("Change detected: %s (%s)", event.Path, event.Op))
			pending.Reset(50 * time.Millisecond)
		case <-pending.C:
			presenter.Separator()
			runOnce()
		case <-ctx.Done():
			return nil
		}
	}
}

// debounceFileEvents forwards an event once its path has been quiet for
// delay.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	pending := make(map[string]*time.Timer)
	fired := make(chan FileEvent)

	stopAll := func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stopAll()
				return
			}
			if timer, exists := pending[event.Path]; exists {
				timer.Stop()
			}
			eventCopy := event
			pending[event.Path] = time.AfterFunc(delay, func() {
				select {
				case fired <- eventCopy:
				case <-ctx.Done():
				}
			})
		case event := <-fired:
			delete(pending, event.Path)
			select {
			case output <- event:
			case <-ctx.Done():
				stopAll()
				return
			}
		case <-ctx.Done():
			stopAll()
			return
		}
	}
}
