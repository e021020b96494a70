package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultBiasWords are used when the prompt config names none.
var DefaultBiasWords = []string{"refund", "charge", "downtime"}

// PromptConfig tunes the classifier instruction and retry budget.
type PromptConfig struct {
	Version      string            `yaml:"version"`
	BiasWords    []string          `yaml:"bias_words"`
	UrgencyRules map[string]string `yaml:"urgency_rules"` // level -> rule text, replaces the built-in rule
	MaxRetries   int               `yaml:"max_retries"`
}

// DefaultPromptConfig returns the configuration used when no file is present.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Version:    "1.0",
		BiasWords:  append([]string(nil), DefaultBiasWords...),
		MaxRetries: 2,
	}
}

// LoadPromptConfig reads a YAML prompt config.
// A missing file yields the defaults without error.
func LoadPromptConfig(path string) (PromptConfig, error) {
	cfg := DefaultPromptConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	// max_retries is a pointer here so an explicit 0 survives the defaults.
	var raw struct {
		Version      string            `yaml:"version"`
		BiasWords    []string          `yaml:"bias_words"`
		UrgencyRules map[string]string `yaml:"urgency_rules"`
		MaxRetries   *int              `yaml:"max_retries"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse prompt config: %w", err)
	}

	if raw.Version != "" {
		cfg.Version = raw.Version
	}
	if len(raw.BiasWords) > 0 {
		cfg.BiasWords = raw.BiasWords
	}
	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return cfg, fmt.Errorf("max_retries must be >= 0, got %d", *raw.MaxRetries)
		}
		cfg.MaxRetries = *raw.MaxRetries
	}
	if len(raw.UrgencyRules) > 0 {
		cfg.UrgencyRules = make(map[string]string, len(raw.UrgencyRules))
		for level, rule := range raw.UrgencyRules {
			cfg.UrgencyRules[strings.ToLower(level)] = rule
		}
	}

	return cfg, nil
}

// PromptStore holds the current prompt config and reloads it when the file changes.
type PromptStore struct {
	path   string
	logger *zap.Logger

	mu  sync.RWMutex
	cfg PromptConfig
}

// NewPromptStore loads path once and returns a store serving it.
func NewPromptStore(path string, logger *zap.Logger) (*PromptStore, error) {
	cfg, err := LoadPromptConfig(path)
	if err != nil {
		return nil, err
	}
	logger.Info("prompt config loaded",
		zap.String("path", path),
		zap.String("version", cfg.Version),
		zap.Int("max_retries", cfg.MaxRetries))
	return &PromptStore{path: path, logger: logger, cfg: cfg}, nil
}

// StaticPrompt returns a store that always serves cfg.
func StaticPrompt(cfg PromptConfig) *PromptStore {
	return &PromptStore{logger: zap.NewNop(), cfg: cfg}
}

// Current returns a snapshot of the active prompt config.
func (s *PromptStore) Current() PromptConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload re-reads the file. On error the previous config stays active.
func (s *PromptStore) Reload() error {
	cfg, err := LoadPromptConfig(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Watch reloads the config whenever its file is written, created or renamed into place.
// The parent directory is watched so editors that replace the file are handled.
// Blocks until ctx is cancelled.
func (s *PromptStore) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("prompt config reload failed, keeping previous", zap.Error(err))
				continue
			}
			cfg := s.Current()
			s.logger.Info("prompt config reloaded",
				zap.String("version", cfg.Version),
				zap.Int("max_retries", cfg.MaxRetries))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("prompt config watcher error", zap.Error(err))
		}
	}
}
