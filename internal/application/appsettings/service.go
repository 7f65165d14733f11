package appsettings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	domain "github.com/adampdxdotcom/GeordiLogger/internal/domain/settings"
)

// Storage keys for the key/value table.
const (
	keyModel                = "model"
	keyAnalysisPrompt       = "analysis_prompt"
	keyScanIntervalMinutes  = "scan_interval_minutes"
	keySummaryIntervalHours = "summary_interval_hours"
	keyLogLines             = "log_lines_to_fetch"
	keyIgnoredContainers    = "ignored_containers"
	keyAPIKey               = "api_key"
)

// Service merges stored settings over defaults and hands out immutable
// snapshots. The cached copy is refreshed on Load and replaced on Update,
// so callers never observe a half-written Settings value.
type Service struct {
	repo domain.Repository

	mu      sync.RWMutex
	current domain.Settings
}

func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo, current: domain.Defaults()}
}

// Load reads the stored values, merges them over defaults, and caches the
// result. Unknown keys are ignored; unparsable numbers keep the default.
func (s *Service) Load(ctx context.Context) (domain.Settings, error) {
	values, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	merged := domain.Defaults()
	if v, ok := values[keyModel]; ok && v != "" {
		merged.Model = v
	}
	if v, ok := values[keyAnalysisPrompt]; ok && v != "" {
		merged.AnalysisPrompt = v
	}
	if v, ok := values[keyScanIntervalMinutes]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			merged.ScanIntervalMinutes = n
		}
	}
	if v, ok := values[keySummaryIntervalHours]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			merged.SummaryIntervalHours = n
		}
	}
	if v, ok := values[keyLogLines]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			merged.LogLines = n
		}
	}
	if v, ok := values[keyIgnoredContainers]; ok && v != "" {
		var ignored []string
		if err := json.Unmarshal([]byte(v), &ignored); err == nil {
			merged.IgnoredContainers = ignored
		}
	}
	if v, ok := values[keyAPIKey]; ok {
		merged.APIKey = v
	}

	s.mu.Lock()
	s.current = merged
	s.mu.Unlock()
	return merged, nil
}

// Snapshot returns the last loaded settings without touching storage.
func (s *Service) Snapshot() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates, persists, and caches new settings.
func (s *Service) Update(ctx context.Context, in domain.Settings) error {
	if in.ScanIntervalMinutes <= 0 {
		return fmt.Errorf("scan_interval_minutes must be positive")
	}
	if in.SummaryIntervalHours <= 0 {
		return fmt.Errorf("summary_interval_hours must be positive")
	}
	if in.LogLines <= 0 {
		return fmt.Errorf("log_lines must be positive")
	}
	if in.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if in.AnalysisPrompt == "" {
		in.AnalysisPrompt = domain.DefaultAnalysisPrompt
	}
	if in.IgnoredContainers == nil {
		in.IgnoredContainers = []string{}
	}

	ignored, err := json.Marshal(in.IgnoredContainers)
	if err != nil {
		return fmt.Errorf("encode ignored containers: %w", err)
	}
	values := map[string]string{
		keyModel:                in.Model,
		keyAnalysisPrompt:       in.AnalysisPrompt,
		keyScanIntervalMinutes:  strconv.Itoa(in.ScanIntervalMinutes),
		keySummaryIntervalHours: strconv.Itoa(in.SummaryIntervalHours),
		keyLogLines:             strconv.Itoa(in.LogLines),
		keyIgnoredContainers:    string(ignored),
		keyAPIKey:               in.APIKey,
	}
	if err := s.repo.Save(ctx, values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.current = in
	s.mu.Unlock()
	return nil
}
