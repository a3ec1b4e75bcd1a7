package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Alerting is the policy surface: cadence is an operational tuning knob, so
// every value here must be overridable from the environment (or a config
// file) without code changes.
type Alerting struct {
	OfflineThreshold         time.Duration // heartbeat age after which a unit counts as stale
	OfflineCooldown          time.Duration // minimum gap between repeated offline alerts
	BatteryLowThreshold      int           // level below which a low-battery condition exists
	BatteryRecoveryThreshold int           // level to cross before a suppressed battery alert re-arms
	BatteryCooldown          time.Duration // minimum gap between repeated battery alerts
	RecoveryWindow           time.Duration // heartbeat recency required to count as back online
}

type Config struct {
	Addr        string // API bind address
	LogDir      string // logs directory
	DatabaseURL string // empty means in-memory stores

	GatewayURL       string // delivery gateway endpoint; empty disables dispatch
	GatewayToken     string
	DispatchAttempts int
	DispatchBackoff  time.Duration

	EvaluateInterval time.Duration // 0 disables the built-in runner

	OperatorAPIKeys []string
	IngestAPIKeys   []string
	HeartbeatRPM    int
	HeartbeatBurst  int

	Alerting Alerting
}

// Load resolves configuration from defaults, an optional CONFIG_FILE, and the
// environment (env wins). Env names follow the keys upper-cased, e.g.
// OFFLINE_THRESHOLD=15m or BATTERY_LOW_THRESHOLD=25.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("database_url", "")

	v.SetDefault("gateway_url", "")
	v.SetDefault("gateway_token", "")
	v.SetDefault("dispatch_attempts", 2)
	v.SetDefault("dispatch_backoff", 300*time.Millisecond)

	v.SetDefault("evaluate_interval", time.Minute)

	v.SetDefault("operator_api_keys", "")
	v.SetDefault("ingest_api_keys", "")
	v.SetDefault("heartbeat_rpm", 240)
	v.SetDefault("heartbeat_burst", 60)

	v.SetDefault("offline_threshold", 10*time.Minute)
	v.SetDefault("offline_cooldown", 24*time.Hour)
	v.SetDefault("battery_low_threshold", 20)
	v.SetDefault("battery_recovery_threshold", 30)
	v.SetDefault("battery_cooldown", 12*time.Hour)
	v.SetDefault("recovery_window", 2*time.Minute)

	v.AutomaticEnv()

	if f := os.Getenv("CONFIG_FILE"); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Addr:        v.GetString("addr"),
		LogDir:      v.GetString("log_dir"),
		DatabaseURL: v.GetString("database_url"),

		GatewayURL:       v.GetString("gateway_url"),
		GatewayToken:     v.GetString("gateway_token"),
		DispatchAttempts: v.GetInt("dispatch_attempts"),
		DispatchBackoff:  v.GetDuration("dispatch_backoff"),

		EvaluateInterval: v.GetDuration("evaluate_interval"),

		OperatorAPIKeys: splitKeys(v.GetString("operator_api_keys")),
		IngestAPIKeys:   splitKeys(v.GetString("ingest_api_keys")),
		HeartbeatRPM:    v.GetInt("heartbeat_rpm"),
		HeartbeatBurst:  v.GetInt("heartbeat_burst"),

		Alerting: Alerting{
			OfflineThreshold:         v.GetDuration("offline_threshold"),
			OfflineCooldown:          v.GetDuration("offline_cooldown"),
			BatteryLowThreshold:      v.GetInt("battery_low_threshold"),
			BatteryRecoveryThreshold: v.GetInt("battery_recovery_threshold"),
			BatteryCooldown:          v.GetDuration("battery_cooldown"),
			RecoveryWindow:           v.GetDuration("recovery_window"),
		},
	}
	if err := cfg.Alerting.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (a Alerting) validate() error {
	if a.OfflineThreshold <= 0 || a.OfflineCooldown <= 0 || a.BatteryCooldown <= 0 || a.RecoveryWindow <= 0 {
		return fmt.Errorf("alerting durations must be positive: %+v", a)
	}
	// The hysteresis band exists to stop flapping near the low line.
	if a.BatteryRecoveryThreshold <= a.BatteryLowThreshold {
		return fmt.Errorf("battery_recovery_threshold (%d) must be above battery_low_threshold (%d)",
			a.BatteryRecoveryThreshold, a.BatteryLowThreshold)
	}
	return nil
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
