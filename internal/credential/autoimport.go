package credential

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/suPer8Hu/genrelay/internal/logging"
)

type ImportResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

type ImportEntry struct {
	APIKey  string `json:"apiKey"`
	KeyName string `json:"keyName,omitempty"`
}

type ConnectionStatus struct {
	Platform  string `json:"platform"`
	Connected bool   `json:"connected"`
	KeyName   string `json:"keyName,omitempty"`
}

type ExportEntry struct {
	KeyPreview string `json:"keyPreview"`
	KeyName    string `json:"keyName,omitempty"`
	IsActive   bool   `json:"isActive"`
}

// ImportFromEnv registers a key for every platform whose environment variable
// is set and that has no active key yet. It is a no-op unless enabled.
func (s *Service) ImportFromEnv(ctx context.Context, enabled bool) []ImportResult {
	results := []ImportResult{}
	if !enabled {
		logging.Infof("[credential] env auto-import disabled (AUTO_IMPORT_API_KEYS != true)")
		return results
	}

	for _, platform := range Platforms {
		name := displayNames[platform]
		envKey := EnvVar(platform)
		v := strings.TrimSpace(s.getenv(envKey))
		if v == "" {
			results = append(results, ImportResult{Platform: platform, Message: fmt.Sprintf("%s: no API key in environment", name)})
			continue
		}

		existing, err := s.Active(ctx, platform)
		if err != nil {
			results = append(results, ImportResult{Platform: platform, Message: fmt.Sprintf("%s: import failed - %v", name, err)})
			continue
		}
		if existing != nil {
			results = append(results, ImportResult{Platform: platform, Success: true, Message: fmt.Sprintf("%s: active key already registered, skipped", name)})
			continue
		}

		if _, err := s.Add(ctx, platform, v, fmt.Sprintf("Auto-imported from ENV (%s)", envKey)); err != nil {
			logging.Errorf("[credential] env import failed platform=%s err=%v", platform, err)
			results = append(results, ImportResult{Platform: platform, Message: fmt.Sprintf("%s: import failed - %v", name, err)})
			continue
		}
		logging.Infof("[credential] imported %s key from %s", name, envKey)
		results = append(results, ImportResult{Platform: platform, Success: true, Message: fmt.Sprintf("%s: API key registered", name)})
	}
	return results
}

// ImportFromJSON replaces the active key of each listed platform.
func (s *Service) ImportFromJSON(ctx context.Context, keys map[string]ImportEntry) []ImportResult {
	platforms := make([]string, 0, len(keys))
	for p := range keys {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	results := make([]ImportResult, 0, len(keys))
	for _, platform := range platforms {
		entry := keys[platform]
		if strings.TrimSpace(entry.APIKey) == "" {
			results = append(results, ImportResult{Platform: platform, Message: fmt.Sprintf("%s: API key is empty", platform)})
			continue
		}
		if !IsValidPlatform(platform) {
			results = append(results, ImportResult{Platform: platform, Message: fmt.Sprintf("%s: invalid platform", platform)})
			continue
		}
		name := entry.KeyName
		if name == "" {
			name = "Imported from JSON"
		}
		k, err := s.seal(platform, entry.APIKey, name)
		if err == nil {
			err = s.repo.ReplaceActive(ctx, k)
		}
		if err != nil {
			logging.Errorf("[credential] json import failed platform=%s err=%v", platform, err)
			results = append(results, ImportResult{Platform: platform, Message: fmt.Sprintf("%s: import failed - %v", platform, err)})
			continue
		}
		results = append(results, ImportResult{Platform: platform, Success: true, Message: fmt.Sprintf("%s: API key registered", platform)})
	}
	return results
}

func (s *Service) ConnectionStatus(ctx context.Context) ([]ConnectionStatus, error) {
	out := make([]ConnectionStatus, 0, len(Platforms))
	for _, platform := range Platforms {
		k, err := s.Active(ctx, platform)
		if err != nil {
			return nil, err
		}
		st := ConnectionStatus{Platform: platform, Connected: k != nil}
		if k != nil {
			st.KeyName = k.KeyName
		}
		out = append(out, st)
	}
	return out, nil
}

// Export returns key metadata per platform; the last key listed wins.
func (s *Service) Export(ctx context.Context) (map[string]ExportEntry, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ExportEntry, len(keys))
	for i := range keys {
		k := keys[i]
		out[k.Platform] = ExportEntry{
			KeyPreview: preview(k.EncryptedKey, 20),
			KeyName:    k.KeyName,
			IsActive:   k.IsActive,
		}
	}
	return out, nil
}
