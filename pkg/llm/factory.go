package llm

import (
	"fmt"

	"doc-qa-go/internal/config"
)

// 支持的生成/嵌入后端名称。
const (
	BackendOpenAI = "openai"
	BackendCohere = "cohere"
)

// Factory 根据后端名称创建 Provider 实例，并注入配置中的凭证与默认参数。
// Factory 本身不缓存实例：每次 Create 返回一个新实例，
// 生命周期与复用由调用方负责（应用为每条路径装配一个长期实例）。
type Factory struct {
	cfg config.LLMConfig
}

// NewFactory 创建一个 LLM Provider 工厂。
func NewFactory(cfg config.LLMConfig) *Factory {
	return &Factory{cfg: cfg}
}

// Create 按名称创建 Provider；未知名称返回错误，调用方应使对应操作失败而非崩溃。
func (f *Factory) Create(backend string) (Provider, error) {
	switch backend {
	case BackendOpenAI:
		return NewOpenAIProvider(
			f.cfg.OpenAI.APIKey,
			f.cfg.OpenAI.BaseURL,
			f.cfg.InputMaxChars,
			f.cfg.MaxOutputTokens,
			f.cfg.Temperature,
		), nil
	case BackendCohere:
		return NewCohereProvider(
			f.cfg.Cohere.APIKey,
			f.cfg.Cohere.BaseURL,
			f.cfg.InputMaxChars,
			f.cfg.MaxOutputTokens,
			f.cfg.Temperature,
		), nil
	default:
		return nil, fmt.Errorf("unknown llm backend: %s (supported: %s, %s)", backend, BackendOpenAI, BackendCohere)
	}
}
