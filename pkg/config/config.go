package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	LLM struct {
		Provider          string        `yaml:"provider"` // ollama or openai
		BaseURL           string        `yaml:"base_url"`
		Model             string        `yaml:"model"`
		EmbeddingProvider string        `yaml:"embedding_provider"` // ollama, openai or hash; defaults to provider
		EmbeddingModel    string        `yaml:"embedding_model"`
		MaxTokens         int           `yaml:"max_tokens"`
		Temperature       float64       `yaml:"temperature"`
		Timeout           time.Duration `yaml:"timeout"`
		MaxRetries        int           `yaml:"max_retries"`
	} `yaml:"llm"`

	Store struct {
		Backend       string `yaml:"backend"` // local, pgvector or qdrant
		Path          string `yaml:"path"`
		Collection    string `yaml:"collection"`
		DatabaseURL   string `yaml:"database_url"`
		QdrantAddr    string `yaml:"qdrant_addr"`
		VectorDim     int    `yaml:"vector_dim"`
		BatchSize     int    `yaml:"batch_size"`
		ResetOnIngest bool   `yaml:"reset_on_ingest"`
	} `yaml:"store"`

	Scraper struct {
		MaxURLs           int               `yaml:"max_urls"`
		MaxDepth          int               `yaml:"max_depth"`
		RateLimit         float64           `yaml:"rate_limit"`
		Timeout           time.Duration     `yaml:"timeout"`
		Headers           map[string]string `yaml:"headers"`
		IgnorePatterns    []string          `yaml:"ignore_patterns"`
		AllowedExtensions []string          `yaml:"allowed_extensions"`
	} `yaml:"scraper"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retriever struct {
		TopK     int     `yaml:"top_k"`
		MinScore float32 `yaml:"min_score"`
	} `yaml:"retriever"`

	UI struct {
		Addr     string `yaml:"addr"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"ui"`

	// keys whose zero value is meaningful, recorded when they appear in a file
	explicit struct {
		temperature  bool
		chunkOverlap bool
	}
}

// presence mirrors the keys of Config that may legitimately be zero.
type presence struct {
	LLM struct {
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"llm"`
	Processor struct {
		ChunkOverlap *int `yaml:"chunk_overlap"`
	} `yaml:"processor"`
}

// Embedding dimensions of well known models, keyed without the Ollama tag.
var embeddingDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

const (
	defaultChunkOverlap = 200
	defaultHashDim      = 256
)

// EmbeddingDim reports the vector size produced by the configured embedding
// model, or 0 when the model is unknown.
func (c *Config) EmbeddingDim() int {
	if c.LLM.EmbeddingProvider == "hash" {
		return 0
	}
	return embeddingDims[strings.SplitN(c.LLM.EmbeddingModel, ":", 2)[0]]
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/research/config.yaml"),
			"/etc/research/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var keys presence
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	config.explicit.temperature = keys.LLM.Temperature != nil
	config.explicit.chunkOverlap = keys.Processor.ChunkOverlap != nil

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "openai" {
			config.LLM.Model = "gpt-4o-mini"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.EmbeddingProvider == "" {
		config.LLM.EmbeddingProvider = config.LLM.Provider
	}
	if config.LLM.EmbeddingModel == "" {
		switch config.LLM.EmbeddingProvider {
		case "openai":
			config.LLM.EmbeddingModel = "text-embedding-3-small"
		case "hash":
			config.LLM.EmbeddingModel = "hash"
		default:
			config.LLM.EmbeddingModel = "nomic-embed-text:latest"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 500
	}
	if config.LLM.Temperature == 0 && !config.explicit.temperature {
		config.LLM.Temperature = 0.9
	}
	if config.LLM.BaseURL == "" && (config.LLM.Provider == "ollama" || config.LLM.EmbeddingProvider == "ollama") {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 60 * time.Second
	}
	if config.LLM.MaxRetries == 0 {
		config.LLM.MaxRetries = 3
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "local"
	}
	if config.Store.Path == "" {
		config.Store.Path = filepath.Join("resources", "vectorstore")
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "real_estate"
	}
	if config.Store.QdrantAddr == "" {
		config.Store.QdrantAddr = "localhost:6334"
	}
	if config.Store.VectorDim == 0 {
		switch dim := config.EmbeddingDim(); {
		case dim > 0:
			config.Store.VectorDim = dim
		case config.LLM.EmbeddingProvider == "hash":
			config.Store.VectorDim = defaultHashDim
		default:
			config.Store.VectorDim = 768
		}
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Scraper.MaxURLs == 0 {
		config.Scraper.MaxURLs = 3
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 30 * time.Second
	}
	if len(config.Scraper.Headers) == 0 {
		config.Scraper.Headers = map[string]string{"User-Agent": DefaultUserAgent}
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 && !config.explicit.chunkOverlap {
		// small chunks get a fifth of their size so overlap stays below chunk_size
		config.Processor.ChunkOverlap = min(defaultChunkOverlap, config.Processor.ChunkSize/5)
	}

	if config.Retriever.TopK == 0 {
		config.Retriever.TopK = 4
	}

	if config.UI.Addr == "" {
		config.UI.Addr = ":8080"
	}
	if config.UI.LogLevel == "" {
		config.UI.LogLevel = "info"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.DatabaseURL = dbURL
	}
	if addr := os.Getenv("QDRANT_URL"); addr != "" {
		config.Store.QdrantAddr = addr
	}
	if path := os.Getenv("RESEARCH_STORE_PATH"); path != "" {
		config.Store.Path = path
	}
}
