package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EngineConfig controls the ambient behavior of an engine instance: how
// verbosely it logs, and whether it pays the cost of auditing its
// invariants after every operation. It carries no domain parameters of
// its own — the book has no symbol, venue, or schema to configure.
type EngineConfig struct {
	ServiceName           string `yaml:"service_name"`
	LogLevel              string `yaml:"log_level"`
	AuditAfterEverySubmit bool   `yaml:"audit_after_every_submit"`
}

// Load loads config from file and environment variables. If filePath is
// empty it falls back to CONFIG_FILE.
func Load(filePath string) (*EngineConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("loading engine config")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("failed to read config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &EngineConfig{}
	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		sugar.Error("failed to parse config file")
		return nil, err
	}

	sugar.Debugf("config: %+v", cfg)
	return cfg, nil
}

// ZapLevel returns LogLevel as a level name for zapcore.ParseLevel,
// defaulting to "info" when it is unset. The value is passed through
// unvalidated.
func (c *EngineConfig) ZapLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}
