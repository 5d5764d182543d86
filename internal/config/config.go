package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendElasticsearch = "elasticsearch"
	BackendPostgres      = "postgres"
)

// LLM providers accepted by LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Common contains storage parameters shared by every service that touches records.
type Common struct {
	StorageBackend     string
	ElasticsearchAddr  string
	ElasticsearchIndex string
	DatabaseURL        string
}

// LLM configures the completion capability.
type LLM struct {
	Provider      string
	APIKey        string
	Model         string
	Endpoint      string
	Timeout       time.Duration
	MaxTokens     int
	Temperature   float64
	RatePerMinute int
}

// Enabled reports whether a key is present.
func (l LLM) Enabled() bool {
	return l.APIKey != ""
}

// Worker holds configuration for the Kafka -> pipeline -> storage worker.
type Worker struct {
	Common
	LLM             LLM
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaConsumer   string
	KafkaDLQTopic   string
	DedupeCapacity  int
	DedupeTTL       time.Duration
	BatchSize       int
	Concurrency     int
	CommitInterval  time.Duration
	MinConfidence   float64
	AnalyzerEnabled bool
	RedisURL        string
	NATSURL         string
	RecordSubject   string
	LexiconPath     string
}

// Collector configures the scheduled article sources.
type Collector struct {
	KafkaBrokers    []string
	KafkaTopic      string
	NewsAPIEnabled  bool
	NewsAPIKey      string
	NewsAPIEndpoint string
	Keywords        []string
	Lookback        time.Duration
	MaxArticles     int
	DONEnabled      bool
	DONURL          string
	Schedule        string
	RunOnStart      bool
	RequestTimeout  time.Duration
}

// Assessor configures the scheduled global threat assessment.
type Assessor struct {
	Common
	LLM           LLM
	Schedule      string
	Window        int
	RunOnStart    bool
	NATSURL       string
	ThreatSubject string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	LLM              LLM
	BindAddr         string
	DefaultPage      int
	MaxPage          int
	AssessmentWindow int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:          common,
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092"), ","),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "articles_raw"),
		KafkaConsumer:   getEnv("KAFKA_CONSUMER_GROUP", "outbreak-worker"),
		KafkaDLQTopic:   getEnv("KAFKA_DLQ_TOPIC", "articles_dlq"),
		DedupeCapacity:  getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:       getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:       getInt("WORKER_BATCH_SIZE", 10),
		Concurrency:     getInt("WORKER_CONCURRENCY", 4),
		CommitInterval:  getDuration("WORKER_COMMIT_INTERVAL", "2s"),
		MinConfidence:   getFloat("WORKER_MIN_CONFIDENCE", 0.3),
		AnalyzerEnabled: getBool("WORKER_ANALYZER_ENABLED", true),
		RedisURL:        os.Getenv("REDIS_URL"),
		NATSURL:         os.Getenv("NATS_URL"),
		RecordSubject:   getEnv("NATS_RECORD_SUBJECT", "outbreaks.records"),
		LexiconPath:     os.Getenv("LEXICON_PATH"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return nil, fmt.Errorf("WORKER_MIN_CONFIDENCE must be within [0,1]")
	}

	if c.AnalyzerEnabled {
		llm, err := loadLLM(true)
		if err != nil {
			return nil, err
		}
		c.LLM = llm
	}

	return c, nil
}

// LoadCollector builds a Collector config from environment variables.
func LoadCollector() (*Collector, error) {
	c := &Collector{
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092"), ","),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "articles_raw"),
		NewsAPIEnabled:  getBool("COLLECTOR_NEWSAPI_ENABLED", true),
		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		NewsAPIEndpoint: getEnv("NEWS_API_ENDPOINT", "https://newsapi.org/v2"),
		Keywords:        splitAndTrim(getEnv("COLLECTOR_KEYWORDS", "outbreak OR epidemic;disease outbreak;public health emergency"), ";"),
		Lookback:        getDuration("COLLECTOR_LOOKBACK", "168h"),
		MaxArticles:     getInt("COLLECTOR_MAX_ARTICLES", 50),
		DONEnabled:      getBool("COLLECTOR_DON_ENABLED", true),
		DONURL:          getEnv("COLLECTOR_DON_URL", "https://www.who.int/emergencies/disease-outbreak-news"),
		Schedule:        getEnv("COLLECTOR_SCHEDULE", "@every 1h"),
		RunOnStart:      getBool("COLLECTOR_RUN_ON_START", true),
		RequestTimeout:  getDuration("COLLECTOR_REQUEST_TIMEOUT", "30s"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.NewsAPIEnabled && c.NewsAPIKey == "" {
		return nil, fmt.Errorf("NEWS_API_KEY is required when COLLECTOR_NEWSAPI_ENABLED is set")
	}
	if !c.NewsAPIEnabled && !c.DONEnabled {
		return nil, fmt.Errorf("at least one article source must be enabled")
	}
	if c.MaxArticles <= 0 {
		return nil, fmt.Errorf("COLLECTOR_MAX_ARTICLES must be positive")
	}
	if c.Lookback <= 0 {
		return nil, fmt.Errorf("COLLECTOR_LOOKBACK must be positive")
	}
	if strings.TrimSpace(c.Schedule) == "" {
		return nil, fmt.Errorf("COLLECTOR_SCHEDULE cannot be empty")
	}

	return c, nil
}

// LoadAssessor builds an Assessor config from environment variables.
func LoadAssessor() (*Assessor, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}
	llm, err := loadLLM(true)
	if err != nil {
		return nil, err
	}

	c := &Assessor{
		Common:        common,
		LLM:           llm,
		Schedule:      getEnv("ASSESSOR_SCHEDULE", "@every 6h"),
		Window:        getInt("ASSESSOR_WINDOW", 10),
		RunOnStart:    getBool("ASSESSOR_RUN_ON_START", true),
		NATSURL:       os.Getenv("NATS_URL"),
		ThreatSubject: getEnv("NATS_THREAT_SUBJECT", "outbreaks.threats"),
	}

	if c.Window <= 0 {
		return nil, fmt.Errorf("ASSESSOR_WINDOW must be positive")
	}
	if strings.TrimSpace(c.Schedule) == "" {
		return nil, fmt.Errorf("ASSESSOR_SCHEDULE cannot be empty")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}
	// The assessment endpoint degrades to "unavailable" without a key.
	llm, err := loadLLM(false)
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:           common,
		LLM:              llm,
		BindAddr:         getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:      getInt("API_PAGE_SIZE", 20),
		MaxPage:          getInt("API_MAX_PAGE_SIZE", 100),
		AssessmentWindow: getInt("API_ASSESSMENT_WINDOW", 10),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.AssessmentWindow <= 0 {
		return nil, fmt.Errorf("API_ASSESSMENT_WINDOW must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &Retention{
		Common:    common,
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "8760h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}

	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadCommon() (Common, error) {
	c := Common{
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendElasticsearch)),
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "outbreaks"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}

	switch c.StorageBackend {
	case BackendElasticsearch:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return Common{}, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return Common{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	return c, nil
}

// loadLLM reads the completion settings. With required set, a missing key is an error.
func loadLLM(required bool) (LLM, error) {
	c := LLM{
		Provider:      strings.ToLower(getEnv("LLM_PROVIDER", ProviderAnthropic)),
		Endpoint:      os.Getenv("LLM_ENDPOINT"),
		Timeout:       getDuration("LLM_TIMEOUT", "60s"),
		MaxTokens:     getInt("LLM_MAX_TOKENS", 2500),
		Temperature:   getFloat("LLM_TEMPERATURE", 0.1),
		RatePerMinute: getInt("LLM_RATE_PER_MINUTE", 50),
	}

	switch c.Provider {
	case ProviderAnthropic:
		c.APIKey = getEnv("LLM_API_KEY", os.Getenv("ANTHROPIC_API_KEY"))
		c.Model = getEnv("LLM_MODEL", "claude-3-5-sonnet-20241022")
	case ProviderOpenAI:
		c.APIKey = getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY"))
		c.Model = getEnv("LLM_MODEL", "gpt-4o-mini")
	default:
		return LLM{}, fmt.Errorf("unsupported LLM_PROVIDER %q", c.Provider)
	}

	if required && c.APIKey == "" {
		return LLM{}, fmt.Errorf("LLM_API_KEY is required for provider %s", c.Provider)
	}
	if c.MaxTokens <= 0 {
		return LLM{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return LLM{}, fmt.Errorf("LLM_TEMPERATURE must be within [0,2]")
	}
	if c.Timeout <= 0 {
		return LLM{}, fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.RatePerMinute < 0 {
		return LLM{}, fmt.Errorf("LLM_RATE_PER_MINUTE cannot be negative")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
