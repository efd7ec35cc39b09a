package modelstore

import "fmt"

// Options selects and configures a backend.
type Options struct {
	Type       string
	Dir        string
	SQLitePath string
	Redis      RedisConfig
}

// Open builds the backend named by opts.Type ("file" when empty).
func Open(opts Options) (Store, error) {
	switch opts.Type {
	case "file", "":
		return NewFile(opts.Dir), nil
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(opts.SQLitePath)
	case "redis":
		return NewRedis(opts.Redis)
	default:
		return nil, fmt.Errorf("unknown model store: %s", opts.Type)
	}
}
