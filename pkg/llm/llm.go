// Package llm provides pluggable clients for text generation and embedding backends.
package llm

import (
	"context"
	"errors"
	"strings"
)

// 消息角色常量，与 OpenAI 风格的 chat 接口对齐。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// 嵌入意图：查询与文档可能走不同的向量变换（如 CoHere 的 input_type）。
const (
	DocumentTypeQuery    = "query"
	DocumentTypeDocument = "document"
)

var (
	// ErrUnconfigured 表示在调用生成/嵌入前未设置模型或客户端。
	ErrUnconfigured = errors.New("llm: model or client is not configured")
	// ErrBackendResponse 表示远端返回了空的或无法解析的响应。
	ErrBackendResponse = errors.New("llm: empty or malformed backend response")
)

// Message 表示一条角色消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationOptions 控制单次生成行为，为 nil 的字段回退到配置默认值。
type GenerationOptions struct {
	MaxOutputTokens *int
	Temperature     *float64
}

// Provider 定义了生成/嵌入能力的统一契约。
// 同一个后端可以同时承担生成与嵌入，由两条独立实例化的路径各自配置模型。
// 模型只在装配阶段通过 Set* 设置一次；请求期间的参数一律走调用参数，
// 不允许写回实例状态，以保证实例可以被并发请求安全共享。
type Provider interface {
	// SetGenerationModel 设置生成所用的远端模型。
	SetGenerationModel(modelID string)
	// SetEmbeddingModel 设置嵌入所用的远端模型与向量维度。
	SetEmbeddingModel(modelID string, embeddingSize int)
	// GenerateText 将 prompt 作为 user 轮追加到 history 后调用远端生成，
	// 返回生成的文本与追加后的完整历史。
	GenerateText(ctx context.Context, prompt string, history []Message, opts *GenerationOptions) (string, []Message, error)
	// EmbedTexts 为每个输入返回一个向量；输入在发送前会被截断到配置的最大字符数。
	EmbedTexts(ctx context.Context, texts []string, documentType string) ([][]float32, error)
	// ConstructPrompt 构造一条带角色标签的消息，纯函数。
	ConstructPrompt(text, role string) Message
}

// truncateInput 将输入硬截断到 maxChars 个字符（非 token）并去除首尾空白。
// maxChars <= 0 时不截断。
func truncateInput(text string, maxChars int) string {
	if maxChars <= 0 {
		return strings.TrimSpace(text)
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		runes = runes[:maxChars]
	}
	return strings.TrimSpace(string(runes))
}
