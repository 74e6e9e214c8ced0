package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/llm/templates"
	"doc-qa-go/pkg/vectordb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnswerService(vectorIndex *fakeVectorIndex, provider *fakeLLM) AnswerService {
	parser := templates.NewParser("en", "en")
	return NewAnswerService(vectorIndex, provider, parser)
}

func TestAnswerQuestionAssemblesPromptFromRetrievedDocuments(t *testing.T) {
	vectorIndex := &fakeVectorIndex{
		searchResult: []vectordb.RetrievedDocument{
			{Score: 0.92, Text: "Go is a statically typed language."},
			{Score: 0.54, Text: "Gophers are small rodents."},
		},
	}
	provider := &fakeLLM{generatedAnswer: "Go is statically typed."}
	svc := newTestAnswerService(vectorIndex, provider)

	result, err := svc.AnswerQuestion(context.Background(), "proj1", "Is Go statically typed?", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, "Go is statically typed.", result.Answer)

	// 文档按相似度降序编号，从 1 开始
	assert.Contains(t, result.FullPrompt, "## Document No: 1")
	assert.Contains(t, result.FullPrompt, "Go is a statically typed language.")
	assert.Contains(t, result.FullPrompt, "## Document No: 2")
	assert.Contains(t, result.FullPrompt, "Gophers are small rodents.")
	assert.Contains(t, result.FullPrompt, "Is Go statically typed?")

	// 文档先于 footer 出现
	docPos := strings.Index(result.FullPrompt, "## Document No: 1")
	footerPos := strings.Index(result.FullPrompt, "## Question:")
	assert.Less(t, docPos, footerPos)
}

func TestAnswerQuestionHistoryStartsWithSystemTurn(t *testing.T) {
	vectorIndex := &fakeVectorIndex{}
	provider := &fakeLLM{generatedAnswer: "answer"}
	svc := newTestAnswerService(vectorIndex, provider)

	chatHistory := []model.ChatMessage{
		{Role: llm.RoleUser, Content: "earlier question", Timestamp: time.Now()},
		{Role: llm.RoleAssistant, Content: "earlier answer", Timestamp: time.Now()},
	}

	result, err := svc.AnswerQuestion(context.Background(), "proj1", "next question", 5, chatHistory)
	require.NoError(t, err)

	// 历史顺序：system、既有会话、本次用户回合
	require.Len(t, result.History, 4)
	assert.Equal(t, llm.RoleSystem, result.History[0].Role)
	assert.Equal(t, "earlier question", result.History[1].Content)
	assert.Equal(t, "earlier answer", result.History[2].Content)
	assert.Equal(t, llm.RoleUser, result.History[3].Role)
	assert.Equal(t, result.FullPrompt, result.History[3].Content)
}

func TestAnswerQuestionWithEmptyRetrievalStillGenerates(t *testing.T) {
	vectorIndex := &fakeVectorIndex{searchResult: []vectordb.RetrievedDocument{}}
	provider := &fakeLLM{generatedAnswer: "I do not have documents for that."}
	svc := newTestAnswerService(vectorIndex, provider)

	result, err := svc.AnswerQuestion(context.Background(), "proj1", "anything", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, "I do not have documents for that.", result.Answer)
	assert.NotContains(t, result.FullPrompt, "## Document No:")
	assert.Contains(t, result.FullPrompt, "## Question:")
}

func TestAnswerQuestionSearchFailure(t *testing.T) {
	vectorIndex := &fakeVectorIndex{searchErr: errors.New("qdrant unreachable")}
	svc := newTestAnswerService(vectorIndex, &fakeLLM{})

	_, err := svc.AnswerQuestion(context.Background(), "proj1", "anything", 5, nil)
	assert.ErrorIs(t, err, ErrAnswerGenerationFailed)
}

func TestAnswerQuestionGenerationFailure(t *testing.T) {
	vectorIndex := &fakeVectorIndex{}
	provider := &fakeLLM{generateErr: errors.New("rate limited")}
	svc := newTestAnswerService(vectorIndex, provider)

	_, err := svc.AnswerQuestion(context.Background(), "proj1", "anything", 5, nil)
	assert.ErrorIs(t, err, ErrAnswerGenerationFailed)
}

