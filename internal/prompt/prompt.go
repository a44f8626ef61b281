// Package prompt holds the built-in system prompts, keyed by skill, with
// optional file overrides reloaded live from a prompts directory.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Skill names.
const (
	SkillDefault  = "default"
	SkillWorkflow = "workflow"
	SkillSmart    = "smart"
)

// Registry resolves a skill name to its system prompt. Built-ins can be
// overridden by <skill>.md files in the overrides directory; when a
// watcher is attached, edits to those files take effect without a restart.
type Registry struct {
	mu        sync.RWMutex
	builtins  map[string]string
	overrides map[string]string
	dir       string
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	logger    zerolog.Logger
}

// NewRegistry creates a registry with the built-in prompts. dir may be
// empty to disable overrides.
func NewRegistry(dir string, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		builtins: map[string]string{
			SkillDefault:  defaultPrompt,
			SkillWorkflow: workflowPrompt,
			SkillSmart:    smartPrompt,
		},
		overrides: make(map[string]string),
		dir:       dir,
		logger:    logger.With().Str("component", "prompt").Logger(),
	}
	if dir != "" {
		if err := r.loadOverrides(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Watch starts reloading overrides when files in the directory change.
func (r *Registry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no prompts directory configured")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher
	r.stopCh = make(chan struct{})
	go r.run()
	return nil
}

// Close stops the watcher if one is running.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.stopCh)
	return r.watcher.Close()
}

// Get returns the prompt for a skill, preferring a file override. Unknown
// skills fall back to the default prompt.
func (r *Registry) Get(skill string) string {
	if skill == "" {
		skill = SkillDefault
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if prompt, ok := r.overrides[skill]; ok {
		return prompt
	}
	if prompt, ok := r.builtins[skill]; ok {
		return prompt
	}
	return r.builtins[SkillDefault]
}

// Skills returns the known skill names, built-ins and overrides combined.
func (r *Registry) Skills() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	names := []string{}
	for name := range r.builtins {
		seen[name] = true
		names = append(names, name)
	}
	for name := range r.overrides {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) loadOverrides() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	loaded := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return err
		}
		skill := strings.TrimSuffix(entry.Name(), ".md")
		loaded[skill] = strings.TrimSpace(string(data))
	}

	r.mu.Lock()
	r.overrides = loaded
	r.mu.Unlock()
	return nil
}

func (r *Registry) run() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				r.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Prompt override changed")
				if err := r.loadOverrides(); err != nil {
					r.logger.Error().Err(err).Msg("Failed to reload prompt overrides")
				}
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("Prompt watcher error")
		case <-r.stopCh:
			return
		}
	}
}
