package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for projection caching; an empty RedisHost disables caching entirely.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Streak engine tuning
	NutritionThreshold  float64
	WorkoutThreshold    float64
	SupplementThreshold float64
	LifestyleThreshold  float64
	OverallThreshold    float64
	StreakGraceDays     int
	FallbackTimezone    string
	DefaultWaterGoalOz  int
	// Reorder lifecycle windows, all in days relative to the last order.
	ReorderWindowDays   int
	ReorderDeadlineDays int
	ReorderWarningDays  int
	LapseGraceDays      int
	// Sweep pacing
	SweepBatchSize     int
	SweepBatchesPerSec int
	CacheTTLSeconds    int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// 1) Try to load JSON config (supports both flat and nested grouped keys)
	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)

	// 2) Fill defaults for any zero values
	applyDefaults(&cfg)

	// 3) Override from environment variables when set
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	// Helpers to read string/int/float/bool safely
	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getFloat := func(m map[string]any, key string) float64 {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return t
			case int:
				return float64(t)
			case json.Number:
				f, _ := t.Float64()
				return f
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}

	// Try grouped sections first
	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	// logging (grouped)
	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	// streak engine section
	if st, ok := raw["streak"].(map[string]any); ok {
		if v := getFloat(st, "NutritionThreshold"); v != 0 {
			out.NutritionThreshold = v
		}
		if v := getFloat(st, "WorkoutThreshold"); v != 0 {
			out.WorkoutThreshold = v
		}
		if v := getFloat(st, "SupplementThreshold"); v != 0 {
			out.SupplementThreshold = v
		}
		if v := getFloat(st, "LifestyleThreshold"); v != 0 {
			out.LifestyleThreshold = v
		}
		if v := getFloat(st, "OverallThreshold"); v != 0 {
			out.OverallThreshold = v
		}
		if v := getInt(st, "GraceDays"); v != 0 {
			out.StreakGraceDays = v
		}
		if v := getString(st, "FallbackTimezone"); v != "" {
			out.FallbackTimezone = v
		}
		if v := getInt(st, "DefaultWaterGoalOz"); v != 0 {
			out.DefaultWaterGoalOz = v
		}
		if v := getInt(st, "ReorderWindowDays"); v != 0 {
			out.ReorderWindowDays = v
		}
		if v := getInt(st, "ReorderDeadlineDays"); v != 0 {
			out.ReorderDeadlineDays = v
		}
		if v := getInt(st, "ReorderWarningDays"); v != 0 {
			out.ReorderWarningDays = v
		}
		if v := getInt(st, "LapseGraceDays"); v != 0 {
			out.LapseGraceDays = v
		}
		if v := getInt(st, "SweepBatchSize"); v != 0 {
			out.SweepBatchSize = v
		}
		if v := getInt(st, "SweepBatchesPerSec"); v != 0 {
			out.SweepBatchesPerSec = v
		}
		if v := getInt(st, "CacheTTLSeconds"); v != 0 {
			out.CacheTTLSeconds = v
		}
	}

	// Also support reading flat keys directly for backward compatibility
	if v, ok := raw["DatabaseURI"]; ok && out.DatabaseURI == "" {
		out.DatabaseURI, _ = v.(string)
	}
	if v, ok := raw["DBHost"]; ok && out.DBHost == "" {
		out.DBHost, _ = v.(string)
	}
	if v, ok := raw["DBPort"]; ok && out.DBPort == "" {
		out.DBPort, _ = v.(string)
	}
	if v, ok := raw["DBUser"]; ok && out.DBUser == "" {
		out.DBUser, _ = v.(string)
	}
	if v, ok := raw["DBPassword"]; ok && out.DBPassword == "" {
		out.DBPassword, _ = v.(string)
	}
	if v, ok := raw["DBName"]; ok && out.DBName == "" {
		out.DBName, _ = v.(string)
	}

	if v, ok := raw["RedisHost"]; ok && out.RedisHost == "" {
		out.RedisHost, _ = v.(string)
	}
	if v, ok := raw["RedisPort"]; ok && out.RedisPort == 0 {
		if f, ok := v.(float64); ok {
			out.RedisPort = int(f)
		}
	}
	if v, ok := raw["RedisDB"]; ok && out.RedisDB == 0 {
		if f, ok := v.(float64); ok {
			out.RedisDB = int(f)
		}
	}
	if v, ok := raw["RedisPassword"]; ok && out.RedisPassword == "" {
		out.RedisPassword, _ = v.(string)
	}

	// logging (flat keys fallback)
	if v, ok := raw["LogLevel"]; ok && out.LogLevel == "" {
		if s, ok := v.(string); ok {
			out.LogLevel = s
		}
	}
	if v, ok := raw["LogPath"]; ok && out.LogPath == "" {
		if s, ok := v.(string); ok {
			out.LogPath = s
		}
	}
	if v, ok := raw["LogMaxSizeMB"]; ok && out.LogMaxSizeMB == 0 {
		if f, ok := v.(float64); ok {
			out.LogMaxSizeMB = int(f)
		}
	}
	if v, ok := raw["LogMaxBackups"]; ok && out.LogMaxBackups == 0 {
		if f, ok := v.(float64); ok {
			out.LogMaxBackups = int(f)
		}
	}
	if v, ok := raw["LogMaxAgeDays"]; ok && out.LogMaxAgeDays == 0 {
		if f, ok := v.(float64); ok {
			out.LogMaxAgeDays = int(f)
		}
	}
	if v, ok := raw["LogCompress"]; ok {
		if b, ok := v.(bool); ok {
			out.LogCompress = b
		}
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "myones"
	}
	// RedisHost deliberately has no default: caching stays off unless configured.
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.NutritionThreshold == 0 {
		c.NutritionThreshold = 0.50
	}
	if c.WorkoutThreshold == 0 {
		c.WorkoutThreshold = 0.50
	}
	if c.SupplementThreshold == 0 {
		c.SupplementThreshold = 0.33
	}
	if c.LifestyleThreshold == 0 {
		c.LifestyleThreshold = 0.40
	}
	if c.OverallThreshold == 0 {
		c.OverallThreshold = 0.50
	}
	if c.StreakGraceDays == 0 {
		c.StreakGraceDays = 2
	}
	if c.FallbackTimezone == "" {
		c.FallbackTimezone = "UTC"
	}
	if c.DefaultWaterGoalOz == 0 {
		c.DefaultWaterGoalOz = 64
	}
	if c.ReorderWindowDays == 0 {
		c.ReorderWindowDays = 75
	}
	if c.ReorderDeadlineDays == 0 {
		c.ReorderDeadlineDays = 95
	}
	if c.ReorderWarningDays == 0 {
		c.ReorderWarningDays = 10
	}
	if c.LapseGraceDays == 0 {
		c.LapseGraceDays = 5
	}
	if c.SweepBatchSize == 0 {
		c.SweepBatchSize = 200
	}
	if c.SweepBatchesPerSec == 0 {
		c.SweepBatchesPerSec = 2
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	// Streak engine env overrides
	if v := getEnv("STREAK_NUTRITION_THRESHOLD", ""); v != "" {
		c.NutritionThreshold = mustParseFloat(v)
	}
	if v := getEnv("STREAK_WORKOUT_THRESHOLD", ""); v != "" {
		c.WorkoutThreshold = mustParseFloat(v)
	}
	if v := getEnv("STREAK_SUPPLEMENT_THRESHOLD", ""); v != "" {
		c.SupplementThreshold = mustParseFloat(v)
	}
	if v := getEnv("STREAK_LIFESTYLE_THRESHOLD", ""); v != "" {
		c.LifestyleThreshold = mustParseFloat(v)
	}
	if v := getEnv("STREAK_OVERALL_THRESHOLD", ""); v != "" {
		c.OverallThreshold = mustParseFloat(v)
	}
	if v := getEnv("STREAK_GRACE_DAYS", ""); v != "" {
		c.StreakGraceDays = mustParseInt(v)
	}
	if v := getEnv("FALLBACK_TIMEZONE", ""); v != "" {
		c.FallbackTimezone = v
	}
	if v := getEnv("DEFAULT_WATER_GOAL_OZ", ""); v != "" {
		c.DefaultWaterGoalOz = mustParseInt(v)
	}
	if v := getEnv("REORDER_WINDOW_DAYS", ""); v != "" {
		c.ReorderWindowDays = mustParseInt(v)
	}
	if v := getEnv("REORDER_DEADLINE_DAYS", ""); v != "" {
		c.ReorderDeadlineDays = mustParseInt(v)
	}
	if v := getEnv("REORDER_WARNING_DAYS", ""); v != "" {
		c.ReorderWarningDays = mustParseInt(v)
	}
	if v := getEnv("LAPSE_GRACE_DAYS", ""); v != "" {
		c.LapseGraceDays = mustParseInt(v)
	}
	if v := getEnv("SWEEP_BATCH_SIZE", ""); v != "" {
		c.SweepBatchSize = mustParseInt(v)
	}
	if v := getEnv("SWEEP_BATCHES_PER_SEC", ""); v != "" {
		c.SweepBatchesPerSec = mustParseInt(v)
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func mustParseFloat(val string) float64 {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("invalid float value %s: %v", val, err)
	}
	return f
}
