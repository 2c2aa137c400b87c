package config

import "time"

const defaultLogsInterval = 5 * time.Second

type TelemetryCfg struct {
	// LogsInterval is the period of the statistics log records.
	LogsInterval time.Duration `yaml:"logs_interval"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}

func (cfg *TelemetryCfg) adjust() {
	if cfg.LogsInterval <= 0 {
		cfg.LogsInterval = defaultLogsInterval
	}
}
