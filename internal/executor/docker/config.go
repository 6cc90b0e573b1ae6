package docker

// MountPoint is where the host work dir appears inside every container.
const MountPoint = "/work"

// Config holds the configuration for Docker execution.
type Config struct {
	// Images maps a language id to the image whose interpreter runs it.
	Images map[string]string
	// WorkDir is the host directory artifacts are written to. It is bind
	// mounted read-only at MountPoint, so it must be the executor's work dir.
	WorkDir string
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// PoolSize is the number of pre-warmed containers kept per language.
	PoolSize int
}

// DefaultConfig provides small official interpreter images.
func DefaultConfig() Config {
	return Config{
		Images: map[string]string{
			"php":        "php:8.3-cli-alpine",
			"javascript": "node:22-alpine",
		},
		// 128 MB memory limit
		MemoryLimit: 128 * 1024 * 1024,
		// 0.5 CPU shares
		CPULimit: 0.5,
		PoolSize: 1,
	}
}
