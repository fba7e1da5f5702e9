package driven

// ConfigStore is a flat key/value view of the settings file, addressed by
// dotted keys such as "pipeline.default_top_k". Typed getters return the
// zero value for a missing key or a value of another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat widens integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set updates the value in memory and writes the file.
	Set(key string, value any) error
	Save() error
	Load() error

	// Path is the backing file, or a marker such as ":memory:".
	Path() string
}
