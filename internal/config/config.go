package config

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Image    ImageConfig    `mapstructure:"image"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains settings for the generative content provider.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// MaxAttempts bounds generation retries, both for transient API errors
	// and for regenerating when the produced word hits an exclusion set.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1,lte=5"`

	// RetryDelaySeconds is the base delay for exponential backoff between
	// transient-error retries.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=1"`

	// TimeoutSeconds caps a single outbound generation call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=1"`
}

// ImageConfig contains settings for the image lookup enrichment.
type ImageConfig struct {
	// PexelsAPIKey may be empty; lookups then short-circuit to the placeholder.
	PexelsAPIKey string `mapstructure:"pexels_api_key"`

	// PlaceholderURL is substituted on any lookup failure.
	PlaceholderURL string `mapstructure:"placeholder_url" validate:"required"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	QueueSize           int `mapstructure:"queue_size"             validate:"gte=1"`
	WorkerCount         int `mapstructure:"worker_count"           validate:"gte=1"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`

	// MinPoolSize is the pool size below which a refill task is enqueued
	// after a content request.
	MinPoolSize int `mapstructure:"min_pool_size" validate:"gte=0"`

	// RefillBatchSize is how many items one refill task generates.
	RefillBatchSize int `mapstructure:"refill_batch_size" validate:"gte=1"`
}
