package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"doc-qa-go/internal/model"
	"doc-qa-go/internal/repository"
	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// NLPHandler 结构体定义了索引与问答相关的处理器。
type NLPHandler struct {
	indexService     service.IndexService
	vectorIndex      service.VectorIndexService
	answerService    service.AnswerService
	conversationRepo repository.ConversationRepository
}

// NewNLPHandler 创建一个新的 NLPHandler 实例。
func NewNLPHandler(
	indexService service.IndexService,
	vectorIndex service.VectorIndexService,
	answerService service.AnswerService,
	conversationRepo repository.ConversationRepository,
) *NLPHandler {
	return &NLPHandler{
		indexService:     indexService,
		vectorIndex:      vectorIndex,
		answerService:    answerService,
		conversationRepo: conversationRepo,
	}
}

type pushIndexRequest struct {
	DoReset bool `json:"do_reset"`
}

type searchRequest struct {
	Text  string `json:"text" binding:"required"`
	Limit int    `json:"limit"`
}

type answerRequest struct {
	Text      string `json:"text" binding:"required"`
	Limit     int    `json:"limit"`
	SessionID string `json:"session_id"`
}

// PushIndex 处理将项目分块推入向量集合的请求。
func (h *NLPHandler) PushIndex(c *gin.Context) {
	projectCode := c.Param("project_code")
	log.Infof("[NLPHandler] 收到索引请求, project: %s", projectCode)

	var req pushIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的请求参数"})
		return
	}

	inserted, err := h.indexService.PushIndex(c.Request.Context(), projectCode, req.DoReset)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "项目不存在"})
			return
		}
		log.Errorf("[NLPHandler] 索引失败, project: %s, 已写入: %d, error: %v", projectCode, inserted, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"data":    gin.H{"inserted_items_count": inserted},
			"message": "索引失败",
		})
		return
	}

	log.Infof("[NLPHandler] 索引成功, project: %s, 共写入: %d", projectCode, inserted)
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"inserted_items_count": inserted},
		"message": "success",
	})
}

// IndexInfo 返回项目向量集合的状态信息及数据库中的分块总数。
func (h *NLPHandler) IndexInfo(c *gin.Context) {
	projectCode := c.Param("project_code")

	info, chunkCount, err := h.indexService.IndexInfo(c.Request.Context(), projectCode)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "项目不存在"})
			return
		}
		log.Errorf("[NLPHandler] 获取集合信息失败, project: %s, error: %v", projectCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "获取集合信息失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"collection":  info,
			"chunk_count": chunkCount,
		},
		"message": "success",
	})
}

// SearchIndex 处理项目集合内的相似度检索请求。
func (h *NLPHandler) SearchIndex(c *gin.Context) {
	projectCode := c.Param("project_code")

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的请求参数"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results, err := h.vectorIndex.SearchByText(c.Request.Context(), projectCode, req.Text, req.Limit)
	if err != nil {
		log.Errorf("[NLPHandler] 检索失败, project: %s, error: %v", projectCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "检索失败"})
		return
	}

	log.Infof("[NLPHandler] 检索成功, project: %s, 返回 %d 条结果", projectCode, len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}

// AnswerQuestion 处理 RAG 问答请求。
// 携带 session_id 时会读取并续写 Redis 中的会话历史。
func (h *NLPHandler) AnswerQuestion(c *gin.Context) {
	projectCode := c.Param("project_code")

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的请求参数"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	// 加载会话历史（仅当带 session_id 时）
	var chatHistory []model.ChatMessage
	if req.SessionID != "" {
		history, err := h.conversationRepo.GetConversationHistory(c.Request.Context(), req.SessionID)
		if err != nil {
			log.Errorf("[NLPHandler] 加载会话历史失败, session: %s, error: %v", req.SessionID, err)
			history = []model.ChatMessage{}
		}
		chatHistory = history
	}

	result, err := h.answerService.AnswerQuestion(c.Request.Context(), projectCode, req.Text, req.Limit, chatHistory)
	if err != nil {
		log.Errorf("[NLPHandler] 问答失败, project: %s, error: %v", projectCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "问答失败"})
		return
	}

	// 续写会话：追加本次的用户提问与助手回答
	if req.SessionID != "" {
		now := time.Now()
		chatHistory = append(chatHistory,
			model.ChatMessage{Role: llm.RoleUser, Content: req.Text, Timestamp: now},
			model.ChatMessage{Role: llm.RoleAssistant, Content: result.Answer, Timestamp: now},
		)
		// 使用后台上下文，即使请求被取消也保存已生成的答案
		if err := h.conversationRepo.UpdateConversationHistory(context.Background(), req.SessionID, chatHistory); err != nil {
			log.Errorf("[NLPHandler] 保存会话历史失败, session: %s, error: %v", req.SessionID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"answer":      result.Answer,
			"full_prompt": result.FullPrompt,
		},
		"message": "success",
	})
}
