package vectordb

import (
	"fmt"

	"doc-qa-go/internal/config"
)

// 支持的向量存储后端。
const (
	BackendQdrant        = "qdrant"
	BackendElasticsearch = "elasticsearch"
)

// Factory 根据配置按名称创建向量存储 Provider。
type Factory struct {
	cfg config.VectorDBConfig
}

// NewFactory 创建向量存储工厂。
func NewFactory(cfg config.VectorDBConfig) *Factory {
	return &Factory{cfg: cfg}
}

// Create 按后端名称实例化 Provider，未知名称返回错误。
func (f *Factory) Create(backend string) (Provider, error) {
	switch backend {
	case BackendQdrant:
		return NewQdrantProvider(
			f.cfg.Qdrant.Endpoint,
			f.cfg.Qdrant.APIKey,
			f.cfg.DistanceMethod,
			f.cfg.Qdrant.TimeoutSeconds,
		), nil
	case BackendElasticsearch:
		return NewElasticsearchProvider(
			f.cfg.Elasticsearch.Addresses,
			f.cfg.Elasticsearch.Username,
			f.cfg.Elasticsearch.Password,
			f.cfg.DistanceMethod,
		)
	default:
		return nil, fmt.Errorf("unknown vectordb backend: %s", backend)
	}
}
