package memory

import (
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/config/kv"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory only. Tests and one-off runs use it
// when nothing may touch ~/.mailbrain.
type ConfigStore struct {
	kv.Values
}

// NewConfigStore merges the seed maps in order; later maps win.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{}
	for _, m := range seed {
		for k, v := range m {
			s.Put(k, v)
		}
	}
	return s
}

func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

// Save and Load have nothing to sync with.
func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string {
	return ":memory:"
}
