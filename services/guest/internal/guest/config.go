package guest

import (
	"strconv"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
)

const (
	DefaultTerminalID     = "terminal-1"
	DefaultSubmitTimeout  = 10 * time.Second
	DefaultRetryInterval  = 30 * time.Second
	DefaultRetryAttempts  = 5
	DefaultStatusCacheAge = time.Minute
)

func stringOr(config *aqm.Config, key, def string) string {
	if config == nil {
		return def
	}
	if v, ok := config.GetString(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func durationOr(config *aqm.Config, logger aqm.Logger, key string, def time.Duration) time.Duration {
	raw := stringOr(config, key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Info("invalid duration, using default", "key", key, "value", raw, "default", def.String())
		return def
	}
	return d
}

func intOr(config *aqm.Config, logger aqm.Logger, key string, def int) int {
	raw := stringOr(config, key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		logger.Info("invalid integer, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}

func floatOr(config *aqm.Config, logger aqm.Logger, key string, def float64) float64 {
	raw := stringOr(config, key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		logger.Info("invalid number, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return f
}
