package config

const DefaultListen = ":8545"

// DefaultLogDir returns the default exchange log directory path.
func DefaultLogDir() string {
	return "~/.tronbridge/logs"
}
