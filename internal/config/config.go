// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Tika     TikaConfig     `mapstructure:"tika"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	LLM      LLMConfig      `mapstructure:"llm"`
	VectorDB VectorDBConfig `mapstructure:"vectordb"`
	Template TemplateConfig `mapstructure:"template"`
	Chunking ChunkingConfig `mapstructure:"chunking"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储大模型后端的选择与各家提供商的凭证配置。
// GenerationBackend 和 EmbeddingBackend 可以指向同一个提供商，
// 两条路径各自独立实例化、独立配置模型。
type LLMConfig struct {
	GenerationBackend string  `mapstructure:"generation_backend"`
	EmbeddingBackend  string  `mapstructure:"embedding_backend"`
	GenerationModelID string  `mapstructure:"generation_model_id"`
	EmbeddingModelID  string  `mapstructure:"embedding_model_id"`
	EmbeddingSize     int     `mapstructure:"embedding_size"`
	InputMaxChars     int     `mapstructure:"input_max_characters"`
	MaxOutputTokens   int     `mapstructure:"max_output_tokens"`
	Temperature       float64 `mapstructure:"temperature"`

	OpenAI ProviderConfig `mapstructure:"openai"`
	Cohere ProviderConfig `mapstructure:"cohere"`
}

// ProviderConfig 存储单个 LLM 提供商的凭证与接入点。
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// VectorDBConfig 存储向量数据库后端的选择与连接配置。
type VectorDBConfig struct {
	Backend        string `mapstructure:"backend"`
	DistanceMethod string `mapstructure:"distance_method"`
	BatchSize      int    `mapstructure:"batch_size"`
	IndexThreshold int    `mapstructure:"index_threshold"`

	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// QdrantConfig 存储 Qdrant 的连接配置。
type QdrantConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// TemplateConfig 存储提示词模板的语言配置。
type TemplateConfig struct {
	Language        string `mapstructure:"language"`
	DefaultLanguage string `mapstructure:"default_language"`
}

// ChunkingConfig 存储文本分块的参数。
type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	PageSize     int `mapstructure:"page_size"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
