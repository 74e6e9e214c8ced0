package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"doc-qa-go/pkg/log"
)

const defaultCohereBaseURL = "https://api.cohere.com"

// CoHere 的 v2/embed 要求显式声明输入用途。
const (
	cohereInputSearchQuery    = "search_query"
	cohereInputSearchDocument = "search_document"
)

// cohereProvider 通过 CoHere v2 HTTP 接口实现 Provider。
// 与 OpenAI 不同，CoHere 的嵌入接口区分查询与文档两种输入意图。
type cohereProvider struct {
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

// NewCohereProvider 创建一个 CoHere Provider 实例。
func NewCohereProvider(apiKey, baseURL string, inputMaxChars, maxOutputTokens int, temperature float64) Provider {
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	return &cohereProvider{
		apiKey:          apiKey,
		baseURL:         baseURL,
		client:          &http.Client{},
		inputMaxChars:   inputMaxChars,
		maxOutputTokens: maxOutputTokens,
		temperature:     temperature,
	}
}

func (p *cohereProvider) SetGenerationModel(modelID string) {
	p.generationModelID = modelID
	log.Infof("[CohereProvider] 生成模型已设置为 %s", modelID)
}

func (p *cohereProvider) SetEmbeddingModel(modelID string, embeddingSize int) {
	p.embeddingModelID = modelID
	p.embeddingSize = embeddingSize
	log.Infof("[CohereProvider] 嵌入模型已设置为 %s, 维度: %d", modelID, embeddingSize)
}

func (p *cohereProvider) ConstructPrompt(text, role string) Message {
	return Message{Role: role, Content: truncateInput(text, p.inputMaxChars)}
}

type cohereChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type cohereChatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// GenerateText 调用 /v2/chat 生成文本。
func (p *cohereProvider) GenerateText(ctx context.Context, prompt string, history []Message, opts *GenerationOptions) (string, []Message, error) {
	if p.generationModelID == "" {
		log.Errorf("[CohereProvider] 生成模型未设置")
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

	reqBody := cohereChatRequest{
		Model:       p.generationModelID,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var chatResp cohereChatResponse
	if err := p.doRequest(ctx, "/v2/chat", reqBody, &chatResp); err != nil {
		return "", messages, err
	}

	for _, c := range chatResp.Message.Content {
		if c.Type == "text" && c.Text != "" {
			return c.Text, messages, nil
		}
	}

	log.Errorf("[CohereProvider] Chat API 返回了空响应")
	return "", messages, ErrBackendResponse
}

type cohereEmbedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type cohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

// EmbedTexts 调用 /v2/embed 为每个输入生成向量，
// 按 documentType 映射 search_query / search_document 两种输入意图。
func (p *cohereProvider) EmbedTexts(ctx context.Context, texts []string, documentType string) ([][]float32, error) {
	if p.embeddingModelID == "" {
		log.Errorf("[CohereProvider] 嵌入模型未设置")
		return nil, ErrUnconfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	inputType := cohereInputSearchDocument
	if documentType == DocumentTypeQuery {
		inputType = cohereInputSearchQuery
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = truncateInput(t, p.inputMaxChars)
	}

	reqBody := cohereEmbedRequest{
		Model:          p.embeddingModelID,
		Texts:          inputs,
		InputType:      inputType,
		EmbeddingTypes: []string{"float"},
	}

	var embResp cohereEmbedResponse
	if err := p.doRequest(ctx, "/v2/embed", reqBody, &embResp); err != nil {
		return nil, err
	}

	if len(embResp.Embeddings.Float) != len(inputs) {
		log.Errorf("[CohereProvider] Embed API 返回数量不匹配: 期望 %d, 实际 %d", len(inputs), len(embResp.Embeddings.Float))
		return nil, ErrBackendResponse
	}
	return embResp.Embeddings.Float, nil
}

// doRequest 向 CoHere 接口发送一次 JSON 请求并解析响应。
func (p *cohereProvider) doRequest(ctx context.Context, path string, body interface{}, result interface{}) error {
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
		log.Errorf("[CohereProvider] 调用 %s 失败: %v", path, err)
		return fmt.Errorf("failed to call cohere api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[CohereProvider] %s 返回非 200 状态码: %s", path, resp.Status)
		return fmt.Errorf("%w: status %s", ErrBackendResponse, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		log.Errorf("[CohereProvider] 解析 %s 响应失败: %v", path, err)
		return fmt.Errorf("%w: %v", ErrBackendResponse, err)
	}
	return nil
}
