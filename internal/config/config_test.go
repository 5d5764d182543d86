package config_test

import (
	"testing"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/stretchr/testify/require"
)

func clearLLM(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_API_KEY", "LLM_MODEL", "LLM_ENDPOINT", "LLM_TIMEOUT",
		"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_RATE_PER_MINUTE",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	clearLLM(t)
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")
	t.Setenv("WORKER_MIN_CONFIDENCE", "")
	t.Setenv("WORKER_ANALYZER_ENABLED", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, config.BackendElasticsearch, cfg.StorageBackend)
	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "outbreaks", cfg.ElasticsearchIndex)
	require.Len(t, cfg.KafkaBrokers, 1)
	require.Equal(t, "kafka:9092", cfg.KafkaBrokers[0])
	require.Equal(t, "articles_raw", cfg.KafkaTopic)
	require.Equal(t, "outbreak-worker", cfg.KafkaConsumer)
	require.InDelta(t, 0.3, cfg.MinConfidence, 1e-9)
	require.True(t, cfg.AnalyzerEnabled)

	require.Equal(t, config.ProviderAnthropic, cfg.LLM.Provider)
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, "claude-3-5-sonnet-20241022", cfg.LLM.Model)
	require.Equal(t, 2500, cfg.LLM.MaxTokens)
	require.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	require.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestLoadWorkerOverrides(t *testing.T) {
	clearLLM(t)
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("WORKER_COMMIT_INTERVAL", "5s")
	t.Setenv("WORKER_MIN_CONFIDENCE", "0.45")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("LLM_RATE_PER_MINUTE", "120")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.ElasticsearchIndex)
	require.Len(t, cfg.KafkaBrokers, 2)
	require.Equal(t, "broker-a:29092", cfg.KafkaBrokers[0])
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
	require.Equal(t, 8, cfg.Concurrency)
	require.Equal(t, 5*time.Second, cfg.CommitInterval)
	require.InDelta(t, 0.45, cfg.MinConfidence, 1e-9)
	require.Equal(t, config.ProviderOpenAI, cfg.LLM.Provider)
	require.Equal(t, "sk-openai", cfg.LLM.APIKey)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	require.Equal(t, 120, cfg.LLM.RatePerMinute)
}

func TestLoadWorkerRequiresKeyWhenAnalyzerEnabled(t *testing.T) {
	clearLLM(t)
	t.Setenv("WORKER_ANALYZER_ENABLED", "true")

	_, err := config.LoadWorker()
	require.ErrorContains(t, err, "LLM_API_KEY")

	t.Setenv("WORKER_ANALYZER_ENABLED", "false")
	cfg, err := config.LoadWorker()
	require.NoError(t, err)
	require.False(t, cfg.LLM.Enabled())
}

func TestLoadWorkerRejectsBadValues(t *testing.T) {
	clearLLM(t)
	t.Setenv("WORKER_ANALYZER_ENABLED", "false")

	t.Setenv("WORKER_MIN_CONFIDENCE", "1.5")
	_, err := config.LoadWorker()
	require.Error(t, err)

	t.Setenv("WORKER_MIN_CONFIDENCE", "")
	t.Setenv("STORAGE_BACKEND", "mongo")
	_, err = config.LoadWorker()
	require.ErrorContains(t, err, "STORAGE_BACKEND")

	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = config.LoadWorker()
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadCollector(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "news-key")
	t.Setenv("COLLECTOR_KEYWORDS", "cholera OR dengue; measles ;;")
	t.Setenv("COLLECTOR_LOOKBACK", "72h")
	t.Setenv("COLLECTOR_SCHEDULE", "*/30 * * * *")

	cfg, err := config.LoadCollector()
	require.NoError(t, err)
	require.Equal(t, []string{"cholera OR dengue", "measles"}, cfg.Keywords)
	require.Equal(t, 72*time.Hour, cfg.Lookback)
	require.Equal(t, "*/30 * * * *", cfg.Schedule)
	require.Equal(t, 50, cfg.MaxArticles)
	require.True(t, cfg.DONEnabled)

	t.Setenv("NEWS_API_KEY", "")
	_, err = config.LoadCollector()
	require.ErrorContains(t, err, "NEWS_API_KEY")

	t.Setenv("COLLECTOR_NEWSAPI_ENABLED", "false")
	_, err = config.LoadCollector()
	require.NoError(t, err)
}

func TestLoadAssessor(t *testing.T) {
	clearLLM(t)
	t.Setenv("LLM_API_KEY", "sk-assess")
	t.Setenv("ASSESSOR_WINDOW", "25")

	cfg, err := config.LoadAssessor()
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Window)
	require.Equal(t, "outbreaks.threats", cfg.ThreatSubject)
	require.Equal(t, "sk-assess", cfg.LLM.APIKey)

	t.Setenv("LLM_API_KEY", "")
	_, err = config.LoadAssessor()
	require.Error(t, err)
}

func TestLoadAPI(t *testing.T) {
	clearLLM(t)
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "api-index")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, 10, cfg.AssessmentWindow)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "api-index", cfg.ElasticsearchIndex)
	require.False(t, cfg.LLM.Enabled())
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)

	t.Setenv("RETENTION_MAX_AGE", "")
	cfg, err = config.LoadRetention()
	require.NoError(t, err)
	require.Equal(t, 8760*time.Hour, cfg.MaxAge)
}
