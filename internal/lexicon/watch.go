package lexicon

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the lexicon file whenever it changes on disk and hands the
// new lexicon to onChange. A file that fails to load is logged and ignored,
// so the caller keeps its previous lexicon. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Lexicon)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve lexicon path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %q: %w", filepath.Dir(target), err)
	}

	logger.Info("watching lexicon file", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			l, err := Load(target)
			if err != nil {
				logger.Warn("lexicon reload failed, keeping previous lexicon",
					zap.String("path", target),
					zap.Error(err),
				)
				continue
			}

			logger.Info("lexicon reloaded",
				zap.String("path", target),
				zap.Int("keywords", len(l.technicalKeywords)),
				zap.Int("labels", len(l.candidateLabels)),
			)
			onChange(l)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("lexicon watcher error", zap.Error(err))
		}
	}
}
