// Package templatesync loads workflow template documents from a directory
// and keeps them in sync with the store as shared templates.
package templatesync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/workflow"
)

const debounce = 300 * time.Millisecond

// Upserter is satisfied by *workflow.Service.
type Upserter interface {
	UpsertTemplate(ctx context.Context, actor workflow.Actor, t workflow.Template) (workflow.Template, bool, error)
}

// Result is the outcome of syncing one file.
type Result struct {
	Path       string
	TemplateID string
	Created    bool
	Err        error
}

type Syncer struct {
	dir    string
	target Upserter
	logger *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timers  map[string]*time.Timer
	stop    chan struct{}
	wg      sync.WaitGroup
}

func New(dir string, target Upserter, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		dir:    dir,
		target: target,
		logger: logger,
		timers: map[string]*time.Timer{},
	}
}

func isTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// SyncAll upserts every template document in the directory, in name order.
// A bad file is reported in its Result and does not stop the others.
func (s *Syncer) SyncAll(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir %s: %w", s.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)

	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		results = append(results, s.SyncFile(ctx, p))
	}
	return results, nil
}

// SyncFile decodes, validates and upserts one file. Documents without an id
// get one derived from the file name so repeated syncs update in place.
func (s *Syncer) SyncFile(ctx context.Context, path string) Result {
	res := Result{Path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return s.logResult(res)
	}
	ext := strings.ToLower(filepath.Ext(path))
	tpl, err := workflow.DecodeTemplateDocument(raw, ext != ".json")
	if err != nil {
		res.Err = err
		return s.logResult(res)
	}
	if tpl.ID == "" {
		tpl.ID = "tpl_" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	// directory templates are shared across organizations
	tpl.OrganizationID = ""
	saved, created, err := s.target.UpsertTemplate(ctx, workflow.SystemActor, tpl)
	res.TemplateID = tpl.ID
	res.Created = created
	res.Err = err
	if err == nil {
		res.TemplateID = saved.ID
	}
	return s.logResult(res)
}

func (s *Syncer) logResult(res Result) Result {
	if res.Err != nil {
		s.logger.Warn("template sync failed", zap.String("path", res.Path), zap.Error(res.Err))
		return res
	}
	s.logger.Info("template synced",
		zap.String("path", res.Path),
		zap.String("template_id", res.TemplateID),
		zap.Bool("created", res.Created))
	return res
}

// Watch starts watching the directory. Writes are debounced per file.
func (s *Syncer) Watch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return errors.New("templatesync: already watching")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.watcher = w
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop(context.WithoutCancel(ctx), w, s.stop)
	s.logger.Info("watching template dir", zap.String("dir", s.dir))
	return nil
}

func (s *Syncer) loop(ctx context.Context, w *fsnotify.Watcher, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isTemplateFile(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				s.schedule(ctx, ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

func (s *Syncer) schedule(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[path]; ok {
		t.Stop()
	}
	s.timers[path] = time.AfterFunc(debounce, func() {
		s.mu.Lock()
		delete(s.timers, path)
		s.mu.Unlock()
		if _, err := os.Stat(path); err != nil {
			// renamed away or removed; shared templates are never deleted by sync
			return
		}
		s.SyncFile(ctx, path)
	})
}

// Close stops the watcher and any pending debounced syncs.
func (s *Syncer) Close() error {
	s.mu.Lock()
	w, stop := s.watcher, s.stop
	s.watcher, s.stop = nil, nil
	for path, t := range s.timers {
		t.Stop()
		delete(s.timers, path)
	}
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	close(stop)
	err := w.Close()
	s.wg.Wait()
	return err
}
