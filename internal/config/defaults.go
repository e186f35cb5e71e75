package config

import "digestbot/internal/schedule"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Store: StoreConfig{
			DSN:                   "~/.digestbot/digest.db",
			MaxConnections:        5,
			ConnectTimeoutSeconds: 3,
			QueryTimeoutSeconds:   10,
		},
		LLM: LLMConfig{
			Provider:       "hyperbolic",
			Model:          "deepseek-ai/DeepSeek-R1",
			TimeoutSeconds: 300,
		},
		Notifier: NotifierConfig{
			Platform:       "discord",
			ParseMode:      "Markdown",
			TimeoutSeconds: 30,
		},
		Schedule: ScheduleConfig{
			Cron: schedule.DefaultExpr,
		},
		Collector: CollectorConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9464",
			Endpoint: "/metrics",
		},
	}
}
