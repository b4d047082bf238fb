package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LevelingConfig is the promotion table used by the leveling engine.
type LevelingConfig struct {
	// WindowMonths is the trailing window, in calendar months, used for activity counts.
	WindowMonths int `mapstructure:"windowMonths"`
	// Requirements are keyed by target level.
	Requirements []LevelRequirement `mapstructure:"requirements"`
	// Growth is keyed by the subject's current level.
	Growth []GrowthRequirement `mapstructure:"growth"`
	// DefaultGrowthPercentage applies to levels missing from Growth.
	DefaultGrowthPercentage float64 `mapstructure:"defaultGrowthPercentage"`
	// EnforceReviewPercentage turns on the MinReviewPercentage check. Off by default.
	EnforceReviewPercentage bool `mapstructure:"enforceReviewPercentage"`
}

type LevelRequirement struct {
	Level               int     `mapstructure:"level" json:"level"`
	MinBookings         int64   `mapstructure:"minBookings" json:"min_bookings"`
	MinReviewPercentage float64 `mapstructure:"minReviewPercentage" json:"min_review_percentage"`
}

type GrowthRequirement struct {
	Level         int     `mapstructure:"level" json:"level"`
	MinPercentage float64 `mapstructure:"minPercentage" json:"min_percentage"`
}

func DefaultLevelingConfig() LevelingConfig {
	return LevelingConfig{
		WindowMonths: 6,
		Requirements: []LevelRequirement{
			{Level: 2, MinBookings: 3, MinReviewPercentage: 75},
			{Level: 3, MinBookings: 7, MinReviewPercentage: 80},
			{Level: 4, MinBookings: 12, MinReviewPercentage: 85},
			{Level: 5, MinBookings: 18, MinReviewPercentage: 88},
			{Level: 6, MinBookings: 25, MinReviewPercentage: 90},
			{Level: 7, MinBookings: 35, MinReviewPercentage: 92},
			{Level: 8, MinBookings: 45, MinReviewPercentage: 94},
			{Level: 9, MinBookings: 60, MinReviewPercentage: 95},
			{Level: 10, MinBookings: 80, MinReviewPercentage: 97},
		},
		Growth: []GrowthRequirement{
			{Level: 1, MinPercentage: 0},
			{Level: 2, MinPercentage: 5},
			{Level: 3, MinPercentage: 10},
			{Level: 4, MinPercentage: 20},
			{Level: 5, MinPercentage: 30},
			{Level: 6, MinPercentage: 40},
			{Level: 7, MinPercentage: 50},
			{Level: 8, MinPercentage: 60},
			{Level: 9, MinPercentage: 70},
			{Level: 10, MinPercentage: 80},
		},
		DefaultGrowthPercentage: 75,
	}
}

type LevelingConfigHolder struct {
	current atomic.Value // holds LevelingConfig
}

// NewStaticLevelingConfigHolder returns a holder that never reloads.
func NewStaticLevelingConfigHolder(cfg LevelingConfig) *LevelingConfigHolder {
	holder := &LevelingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewLevelingConfigHolder(log *zap.Logger) (*LevelingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("leveling.config")

	v := viper.New()

	v.SetConfigName("leveling")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/studiobook/config")
	v.AddConfigPath("/etc/studiobook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STUDIOBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Info("leveling config file not found, using defaults")
		return NewStaticLevelingConfigHolder(DefaultLevelingConfig()), nil
	}

	cfg, err := decodeLevelingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticLevelingConfigHolder(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeLevelingConfig(v)
		if err != nil {
			log.Warn("leveling config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("leveling config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *LevelingConfigHolder) Get() LevelingConfig {
	return h.current.Load().(LevelingConfig)
}

func decodeLevelingConfig(v *viper.Viper) (LevelingConfig, error) {
	var cfg LevelingConfig
	if err := v.UnmarshalKey("leveling", &cfg); err != nil {
		return LevelingConfig{}, err
	}
	cfg = cfg.withDefaults()
	if err := ValidateLevelingConfig(cfg); err != nil {
		return LevelingConfig{}, err
	}
	return cfg, nil
}

func (c LevelingConfig) withDefaults() LevelingConfig {
	defaults := DefaultLevelingConfig()
	if c.WindowMonths <= 0 {
		c.WindowMonths = defaults.WindowMonths
	}
	if len(c.Requirements) == 0 {
		c.Requirements = defaults.Requirements
	}
	if len(c.Growth) == 0 {
		c.Growth = defaults.Growth
	}
	if c.DefaultGrowthPercentage <= 0 {
		c.DefaultGrowthPercentage = defaults.DefaultGrowthPercentage
	}
	return c
}

func ValidateLevelingConfig(cfg LevelingConfig) error {
	if cfg.WindowMonths <= 0 {
		return errors.New("leveling.windowMonths must be positive")
	}
	if len(cfg.Requirements) == 0 {
		return errors.New("leveling.requirements cannot be empty")
	}

	seen := make(map[int]struct{}, len(cfg.Requirements))
	for _, req := range cfg.Requirements {
		if req.Level < 2 {
			return fmt.Errorf("leveling.requirements: level %d must be at least 2", req.Level)
		}
		if _, ok := seen[req.Level]; ok {
			return fmt.Errorf("leveling.requirements: duplicate level %d", req.Level)
		}
		seen[req.Level] = struct{}{}
		if req.MinBookings < 0 {
			return fmt.Errorf("leveling.requirements: level %d has negative minBookings", req.Level)
		}
		if req.MinReviewPercentage < 0 || req.MinReviewPercentage > 100 {
			return fmt.Errorf("leveling.requirements: level %d minReviewPercentage out of range", req.Level)
		}
	}
	for level := 2; level < 2+len(cfg.Requirements); level++ {
		if _, ok := seen[level]; !ok {
			return fmt.Errorf("leveling.requirements: missing level %d", level)
		}
	}

	for _, growth := range cfg.Growth {
		if growth.Level < 1 {
			return fmt.Errorf("leveling.growth: level %d must be at least 1", growth.Level)
		}
		if growth.MinPercentage < 0 {
			return fmt.Errorf("leveling.growth: level %d has negative minPercentage", growth.Level)
		}
	}
	if cfg.DefaultGrowthPercentage < 0 {
		return errors.New("leveling.defaultGrowthPercentage cannot be negative")
	}
	return nil
}
