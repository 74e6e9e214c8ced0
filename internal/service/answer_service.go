package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/llm/templates"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/vectordb"
)

// ErrAnswerGenerationFailed 表示 RAG 问答流程未能产出答案。
var ErrAnswerGenerationFailed = errors.New("answer generation failed")

// AnswerResult 是一次 RAG 问答的完整产出。
// History 包含 system 回合与本次用户回合，供调用方续写会话。
type AnswerResult struct {
	Answer     string
	FullPrompt string
	History    []llm.Message
}

// AnswerService 负责协调检索、提示词组装与答案生成。
type AnswerService interface {
	AnswerQuestion(ctx context.Context, projectCode, query string, limit int, chatHistory []model.ChatMessage) (*AnswerResult, error)
}

type answerService struct {
	vectorIndex   VectorIndexService
	generationLLM llm.Provider
	parser        *templates.Parser
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(vectorIndex VectorIndexService, generationLLM llm.Provider, parser *templates.Parser) AnswerService {
	return &answerService{
		vectorIndex:   vectorIndex,
		generationLLM: generationLLM,
		parser:        parser,
	}
}

// AnswerQuestion 执行完整的 RAG 流程：检索相关分块、渲染提示词、调用生成模型。
// 检索结果为空不是致命错误，模型仍会在没有参考文档的情况下作答。
func (s *answerService) AnswerQuestion(ctx context.Context, projectCode, query string, limit int, chatHistory []model.ChatMessage) (*AnswerResult, error) {
	// 1. 将查询向量化并检索相关分块
	log.Infof("[AnswerService] 步骤1: 检索项目 %s 的相关分块, limit: %d", projectCode, limit)
	retrieved, err := s.vectorIndex.SearchByText(ctx, projectCode, query, limit)
	if err != nil {
		log.Errorf("[AnswerService] 检索失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrAnswerGenerationFailed, err)
	}
	log.Infof("[AnswerService] 步骤1: 检索到 %d 条相关分块", len(retrieved))

	// 2. 渲染提示词：system 模板 + 逐条文档模板 + footer 模板
	systemPrompt, fullPrompt, err := s.buildPrompt(query, retrieved)
	if err != nil {
		log.Errorf("[AnswerService] 渲染提示词失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrAnswerGenerationFailed, err)
	}

	// 3. 组装对话历史：system 在前，既有会话历史随后
	history := s.composeHistory(systemPrompt, chatHistory)

	// 4. 调用生成模型；完整提示词作为最新的用户回合追加
	log.Info("[AnswerService] 步骤2: 调用生成模型产出答案")
	answer, updatedHistory, err := s.generationLLM.GenerateText(ctx, fullPrompt, history, nil)
	if err != nil {
		log.Errorf("[AnswerService] 生成答案失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrAnswerGenerationFailed, err)
	}

	return &AnswerResult{
		Answer:     answer,
		FullPrompt: fullPrompt,
		History:    updatedHistory,
	}, nil
}

// buildPrompt 渲染 system 提示词与完整的用户提示词。
// 文档按检索顺序（相似度降序）编号，编号从 1 开始。
func (s *answerService) buildPrompt(query string, retrieved []vectordb.RetrievedDocument) (string, string, error) {
	systemPrompt, err := s.parser.Get("rag", "system_prompt", nil)
	if err != nil {
		return "", "", fmt.Errorf("渲染 system_prompt 失败: %w", err)
	}

	parts := make([]string, 0, len(retrieved)+1)
	for i, doc := range retrieved {
		documentPrompt, err := s.parser.Get("rag", "document_prompt", map[string]interface{}{
			"doc_num":    i + 1,
			"chunk_text": doc.Text,
		})
		if err != nil {
			return "", "", fmt.Errorf("渲染 document_prompt 失败: %w", err)
		}
		parts = append(parts, documentPrompt)
	}

	footerPrompt, err := s.parser.Get("rag", "footer_prompt", map[string]interface{}{
		"query": query,
	})
	if err != nil {
		return "", "", fmt.Errorf("渲染 footer_prompt 失败: %w", err)
	}
	parts = append(parts, footerPrompt)

	return systemPrompt, strings.Join(parts, "\n"), nil
}

func (s *answerService) composeHistory(systemPrompt string, chatHistory []model.ChatMessage) []llm.Message {
	history := []llm.Message{s.generationLLM.ConstructPrompt(systemPrompt, llm.RoleSystem)}
	for _, msg := range chatHistory {
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return history
}
