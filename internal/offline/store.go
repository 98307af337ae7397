package offline

import (
	"encoding/json"
	"fmt"
)

// Store is the persistent key-value backing of an engine. Load returns
// nil, nil for a missing key.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, value []byte) error
}

func cacheKey(name string) string    { return name + ":cache" }
func pendingKey(name string) string  { return name + ":pending" }
func rejectedKey(name string) string { return name + ":rejected" }

func loadJSON(s Store, key string, v interface{}) error {
	raw, err := s.Load(key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func saveJSON(s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Save(key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
