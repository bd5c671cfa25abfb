package config

// ConfigBackend is where non-secret settings live between runs: the
// `defaults` domain on macOS, a JSON file elsewhere. Secrets never go
// through it; see Keychain.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetBool(key string) (val bool, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetBool(key string, val bool) error
	Delete(key string) error
}
