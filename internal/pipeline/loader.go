package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Jmjcoke/quorum/internal/model"
)

// responseSet is the on-disk shape of a collected response set.
type responseSet struct {
	Prompt    string              `json:"prompt" yaml:"prompt"`
	Responses []model.LLMResponse `json:"responses" yaml:"responses"`
}

// LoadResult contains a loaded response set and provenance metadata.
type LoadResult struct {
	Responses []model.LLMResponse
	Prompt    string
	Path      string
	LoadedAt  time.Time
	Skipped   []string // malformed entries dropped during sanitization
}

// LoadResponses reads a response-set file (.json, .yaml or .yml). Entries
// missing a provider are dropped rather than failing the whole load; missing
// IDs and timestamps are filled in.
func LoadResponses(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read response set: %w", err)
	}

	var set responseSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("parse yaml response set: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &set); err != nil {
			// Accept a bare array of responses as well.
			if arrErr := json.Unmarshal(data, &set.Responses); arrErr != nil {
				return nil, fmt.Errorf("parse json response set: %w", err)
			}
		}
	}

	result := &LoadResult{
		Prompt:   set.Prompt,
		Path:     path,
		LoadedAt: time.Now().UTC(),
	}
	for i, r := range set.Responses {
		if strings.TrimSpace(r.Provider) == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("entry %d: missing provider", i))
			continue
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = result.LoadedAt
		}
		result.Responses = append(result.Responses, r)
	}
	if len(result.Responses) == 0 {
		return nil, fmt.Errorf("response set %s contains no usable responses", path)
	}
	return result, nil
}
