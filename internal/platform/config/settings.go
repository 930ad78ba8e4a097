package config

import "time"

// Settings is the process configuration assembled from the environment.
type Settings struct {
	Port      string
	LogLevel  string
	LogFormat string

	ClassifierURL        string
	ClassifierConfidence float64
	ClassifierTimeout    time.Duration

	HazardLabels []string

	LogBackend  string // sqlite, postgres, redis or memory
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string
	RedisStream string

	SnapshotDir string

	AnnounceQueueSize  int
	AnnouncePolicy     string // drop-newest or drop-oldest
	StatusQueueSize    int
	StatusPollInterval time.Duration

	TTSCommand string // "auto", "none" or an executable name
	AlertSound string
	FFmpegPath string
}

// DefaultHazardLabels is the hazard vocabulary used when HAZARD_LABELS is unset.
var DefaultHazardLabels = []string{"person", "car", "truck", "bicycle", "motorbike", "pothole"}

// FromEnv reads Settings from the environment, applying defaults.
// Call Load first if a .env file should be honoured.
func FromEnv() Settings {
	return Settings{
		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),

		ClassifierURL:        GetEnv("CLASSIFIER_URL", "http://localhost:9000"),
		ClassifierConfidence: GetEnvFloat("CLASSIFIER_CONFIDENCE", 0.4),
		ClassifierTimeout:    GetEnvDuration("CLASSIFIER_TIMEOUT", 30*time.Second),

		HazardLabels: GetEnvList("HAZARD_LABELS", DefaultHazardLabels),

		LogBackend:  GetEnv("LOG_BACKEND", "sqlite"),
		SQLitePath:  GetEnv("SQLITE_PATH", "hazards.db"),
		DatabaseURL: GetEnv("DATABASE_URL", ""),
		RedisAddr:   GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisStream: GetEnv("REDIS_STREAM", "hazards:log"),

		SnapshotDir: GetEnv("SNAPSHOT_DIR", "snapshots"),

		AnnounceQueueSize:  GetEnvInt("ANNOUNCE_QUEUE_SIZE", 4),
		AnnouncePolicy:     GetEnv("ANNOUNCE_POLICY", "drop-newest"),
		StatusQueueSize:    GetEnvInt("STATUS_QUEUE_SIZE", 64),
		StatusPollInterval: GetEnvDuration("STATUS_POLL_INTERVAL", 300*time.Millisecond),

		TTSCommand: GetEnv("TTS_COMMAND", "auto"),
		AlertSound: GetEnv("ALERT_SOUND", "alert.mp3"),
		FFmpegPath: GetEnv("FFMPEG_PATH", "ffmpeg"),
	}
}
