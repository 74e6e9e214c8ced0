package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"doc-qa-go/pkg/log"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIProvider 通过 OpenAI 兼容的 HTTP 接口实现 Provider。
// 兼容接口的特性使它同样适用于 DeepSeek、通义等 OpenAI 风格的服务。
type openAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client

	inputMaxChars   int
	maxOutputTokens int
	temperature     float64

	generationModelID string
	embeddingModelID  string
	embeddingSize     int
}

// NewOpenAIProvider 创建一个 OpenAI 兼容的 Provider 实例。
func NewOpenAIProvider(apiKey, baseURL string, inputMaxChars, maxOutputTokens int, temperature float64) Provider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		apiKey:          apiKey,
		baseURL:         baseURL,
		client:          &http.Client{},
		inputMaxChars:   inputMaxChars,
		maxOutputTokens: maxOutputTokens,
		temperature:     temperature,
	}
}

func (p *openAIProvider) SetGenerationModel(modelID string) {
	p.generationModelID = modelID
	log.Infof("[OpenAIProvider] 生成模型已设置为 %s", modelID)
}

func (p *openAIProvider) SetEmbeddingModel(modelID string, embeddingSize int) {
	p.embeddingModelID = modelID
	p.embeddingSize = embeddingSize
	log.Infof("[OpenAIProvider] 嵌入模型已设置为 %s, 维度: %d", modelID, embeddingSize)
}

func (p *openAIProvider) ConstructPrompt(text, role string) Message {
	return Message{Role: role, Content: truncateInput(text, p.inputMaxChars)}
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateText 调用 /chat/completions 生成文本。
func (p *openAIProvider) GenerateText(ctx context.Context, prompt string, history []Message, opts *GenerationOptions) (string, []Message, error) {
	if p.generationModelID == "" {
		log.Errorf("[OpenAIProvider] 生成模型未设置")
		return "", history, ErrUnconfigured
	}

	maxTokens := p.maxOutputTokens
	temperature := p.temperature
	if opts != nil {
		if opts.MaxOutputTokens != nil {
			maxTokens = *opts.MaxOutputTokens
		}
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
	}

	messages := append(append([]Message{}, history...), p.ConstructPrompt(prompt, RoleUser))

	reqBody := openAIChatRequest{
		Model:       p.generationModelID,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var chatResp openAIChatResponse
	if err := p.doRequest(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", messages, err
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		log.Errorf("[OpenAIProvider] Chat API 返回了空响应")
		return "", messages, ErrBackendResponse
	}

	return chatResp.Choices[0].Message.Content, messages, nil
}

type openAIEmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedTexts 调用 /embeddings 为每个输入生成向量。
// OpenAI 不区分查询/文档意图，documentType 在这里被忽略。
func (p *openAIProvider) EmbedTexts(ctx context.Context, texts []string, documentType string) ([][]float32, error) {
	if p.embeddingModelID == "" {
		log.Errorf("[OpenAIProvider] 嵌入模型未设置")
		return nil, ErrUnconfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = truncateInput(t, p.inputMaxChars)
	}

	reqBody := openAIEmbeddingRequest{
		Model:      p.embeddingModelID,
		Input:      inputs,
		Dimensions: p.embeddingSize,
	}

	var embResp openAIEmbeddingResponse
	if err := p.doRequest(ctx, "/embeddings", reqBody, &embResp); err != nil {
		return nil, err
	}

	if len(embResp.Data) != len(inputs) {
		log.Errorf("[OpenAIProvider] Embedding API 返回数量不匹配: 期望 %d, 实际 %d", len(inputs), len(embResp.Data))
		return nil, ErrBackendResponse
	}

	vectors := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		if len(d.Embedding) == 0 {
			log.Errorf("[OpenAIProvider] Embedding API 返回了空向量")
			return nil, ErrBackendResponse
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// doRequest 向 OpenAI 兼容接口发送一次 JSON 请求并解析响应。
func (p *openAIProvider) doRequest(ctx context.Context, path string, body interface{}, result interface{}) error {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		log.Errorf("[OpenAIProvider] 调用 %s 失败: %v", path, err)
		return fmt.Errorf("failed to call openai api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[OpenAIProvider] %s 返回非 200 状态码: %s", path, resp.Status)
		return fmt.Errorf("%w: status %s", ErrBackendResponse, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		log.Errorf("[OpenAIProvider] 解析 %s 响应失败: %v", path, err)
		return fmt.Errorf("%w: %v", ErrBackendResponse, err)
	}
	return nil
}
