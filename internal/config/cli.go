package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// CLIConfigFileName: конфиг engagectl, ищется вверх от рабочего каталога.
const CLIConfigFileName = "engagectl.toml"

const (
	DefaultServerURL = "http://localhost:8080"
	DefaultTimeout   = 10 * time.Second
)

type CLIConfig struct {
	ServerURL string        `toml:"server_url"`
	Username  string        `toml:"username"`
	Timeout   time.Duration `toml:"timeout"`

	// только из ENGAGECTL_PASSWORD, в файле не хранится
	Password string `toml:"-"`
}

// FindCLIConfig возвращает путь к engagectl.toml или "", если файла нет
// до корня файловой системы.
func FindCLIConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, CLIConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadCLI читает path (пустой: только значения по умолчанию) и накладывает
// ENGAGECTL_SERVER_URL, ENGAGECTL_USERNAME, ENGAGECTL_PASSWORD.
// Неизвестные ключи в файле: ошибка.
func LoadCLI(path string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if v := os.Getenv("ENGAGECTL_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("ENGAGECTL_USERNAME"); v != "" {
		cfg.Username = v
	}
	cfg.Password = os.Getenv("ENGAGECTL_PASSWORD")

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}
