package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Evaluator EvaluatorConfig
	Chat      ChatConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type DataConfig struct {
	FAQFile string
}

type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RetrievalConfig struct {
	TopK            int
	FetchMultiplier int
}

type EvaluatorConfig struct {
	UseModel bool
}

type ChatConfig struct {
	MaxHistoryLength int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/nawatech-chatbot")

	viper.SetEnvPrefix("NAWATECH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("data.faqFile", "./data/faqs.csv")

	viper.SetDefault("embedding.baseURL", "")
	viper.SetDefault("embedding.apiKey", "")
	viper.SetDefault("embedding.model", "ebbge-v2")
	viper.SetDefault("embedding.batchSize", 3)

	viper.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "Qwen2.5-7B")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("retrieval.topK", 6)
	viper.SetDefault("retrieval.fetchMultiplier", 10)

	viper.SetDefault("evaluator.useModel", false)

	viper.SetDefault("chat.maxHistoryLength", 20)

	viper.SetDefault("sqlite.path", "./data/chatbot.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
