package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Image backend identifiers accepted by IMAGE_BACKEND.
const (
	BackendFalQueue     = "fal-queue"
	BackendFalSync      = "fal-sync"
	BackendOpenAIImages = "openai-images"
	BackendGatewayChat  = "gateway-chat"
	BackendGemini       = "gemini"
	BackendQwenImage    = "qwen-image"
)

// Config represents proxy configuration loaded from environment variables.
// Provider secrets are deliberately absent: they are resolved per invocation.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"8080"`

	ImageBackend string `envconfig:"IMAGE_BACKEND" default:"fal-queue"`

	FalQueueURL      string        `envconfig:"FAL_QUEUE_URL" default:"https://queue.fal.run"`
	FalRunURL        string        `envconfig:"FAL_RUN_URL" default:"https://fal.run"`
	FalModel         string        `envconfig:"FAL_MODEL" default:"bria/fibo/generate"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	PollMaxAttempts  int           `envconfig:"POLL_MAX_ATTEMPTS" default:"60"`
	FalSubmitTimeout time.Duration `envconfig:"FAL_SUBMIT_TIMEOUT" default:"15s"`

	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIImageModel string `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
	OpenAIImageSize  string `envconfig:"OPENAI_IMAGE_SIZE" default:"1024x1024"`

	GatewayBaseURL string `envconfig:"GATEWAY_BASE_URL" default:"https://ai.gateway.lovable.dev/v1"`
	GatewayModel   string `envconfig:"GATEWAY_MODEL" default:"google/gemini-2.5-flash-image-preview"`

	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL"`
	GeminiImageModel string `envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.5-flash-image"`

	QwenBaseURL      string `envconfig:"QWEN_BASE_URL" default:"https://dashscope-intl.aliyuncs.com/api/v1"`
	QwenModel        string `envconfig:"QWEN_MODEL" default:"qwen-image-plus"`
	QwenImageSize    string `envconfig:"QWEN_IMAGE_SIZE" default:"1328*1328"`
	QwenPromptExtend bool   `envconfig:"QWEN_PROMPT_EXTEND" default:"true"`

	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"90s"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	GeoIPDBPath string `envconfig:"GEOIP_DB_PATH"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitPerMin    int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`

	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP set the client
	// address. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"150s"`
	HTTPIdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.ImageBackend = strings.ToLower(strings.TrimSpace(cfg.ImageBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollBudget is the longest a submit-then-poll generation may wait.
func (c *Config) PollBudget() time.Duration {
	return c.PollInterval * time.Duration(c.PollMaxAttempts)
}

// GenerationDeadline bounds one upstream generation end to end. The proxy
// answers with a timeout once it passes.
func (c *Config) GenerationDeadline() time.Duration {
	if c.ImageBackend == BackendFalQueue {
		return c.PollBudget() + c.FalSubmitTimeout
	}
	return c.UpstreamTimeout
}

// responseMargin is the time left after the deadline to write the answer.
const responseMargin = time.Second

func (c *Config) validate() error {
	switch c.ImageBackend {
	case BackendFalQueue, BackendFalSync, BackendOpenAIImages, BackendGatewayChat, BackendGemini, BackendQwenImage:
	default:
		return fmt.Errorf("IMAGE_BACKEND %q is not supported", c.ImageBackend)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if c.FalSubmitTimeout <= 0 {
		return fmt.Errorf("FAL_SUBMIT_TIMEOUT must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.HTTPWriteTimeout < c.GenerationDeadline()+responseMargin {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT (%s) must exceed the generation deadline (%s) by at least %s",
			c.HTTPWriteTimeout, c.GenerationDeadline(), responseMargin)
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// JournalEnabled reports whether a database was configured for the generation journal.
func (c *Config) JournalEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
