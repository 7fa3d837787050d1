package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GreptimeSettings selects the GreptimeDB sink. An empty Endpoint disables it.
type GreptimeSettings struct {
	Endpoint    string
	Database    string
	EntityTable string
	EffectTable string
}

// Runtime holds process settings that are independent of world content.
type Runtime struct {
	Tick      time.Duration
	LogLevel  string
	AdminAddr string
	Greptime  GreptimeSettings
}

// LoadRuntime reads runtime settings from defaults, an optional config file
// and SIGNALOPS_* environment variables, in increasing precedence.
func LoadRuntime(path string) (*Runtime, error) {
	v := viper.New()
	v.SetDefault("tick", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("admin_addr", ":8080")
	v.SetDefault("greptime.endpoint", "")
	v.SetDefault("greptime.database", "public")
	v.SetDefault("greptime.entity_table", "entity_positions")
	v.SetDefault("greptime.effect_table", "objective_effects")

	v.SetEnvPrefix("SIGNALOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read runtime config: %w", err)
		}
	}

	rt := &Runtime{
		Tick:      v.GetDuration("tick"),
		LogLevel:  v.GetString("log_level"),
		AdminAddr: v.GetString("admin_addr"),
		Greptime: GreptimeSettings{
			Endpoint:    v.GetString("greptime.endpoint"),
			Database:    v.GetString("greptime.database"),
			EntityTable: v.GetString("greptime.entity_table"),
			EffectTable: v.GetString("greptime.effect_table"),
		},
	}
	if rt.Tick <= 0 {
		return nil, fmt.Errorf("runtime config: tick must be positive, got %v", rt.Tick)
	}
	return rt, nil
}
