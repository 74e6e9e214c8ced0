// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/vectordb"
)

// VectorIndexService 封装了项目向量集合的管理与检索操作。
// 所有操作以项目编码为入口，集合命名由本服务统一推导。
type VectorIndexService interface {
	CollectionName(projectCode string) string
	GetCollectionInfo(ctx context.Context, projectCode string) (*vectordb.CollectionInfo, error)
	ResetCollection(ctx context.Context, projectCode string) (bool, error)
	EnsureCollection(ctx context.Context, projectCode string, doReset bool) error
	IndexChunks(ctx context.Context, projectCode string, chunks []*model.DataChunk, startID int) error
	SearchByText(ctx context.Context, projectCode, text string, limit int) ([]vectordb.RetrievedDocument, error)
}

type vectorIndexService struct {
	vectorDB      vectordb.Provider
	embeddingLLM  llm.Provider
	embeddingSize int
	batchSize     int
}

// NewVectorIndexService 创建一个新的 VectorIndexService 实例。
func NewVectorIndexService(vectorDB vectordb.Provider, embeddingLLM llm.Provider, cfg config.VectorDBConfig, llmCfg config.LLMConfig) VectorIndexService {
	return &vectorIndexService{
		vectorDB:      vectorDB,
		embeddingLLM:  embeddingLLM,
		embeddingSize: llmCfg.EmbeddingSize,
		batchSize:     cfg.BatchSize,
	}
}

// CollectionName 根据项目编码推导向量集合名称。
func (s *vectorIndexService) CollectionName(projectCode string) string {
	return strings.TrimSpace("collection_" + projectCode)
}

// GetCollectionInfo 返回项目集合的存在性、记录数与状态。
func (s *vectorIndexService) GetCollectionInfo(ctx context.Context, projectCode string) (*vectordb.CollectionInfo, error) {
	return s.vectorDB.GetCollectionInfo(ctx, s.CollectionName(projectCode))
}

// ResetCollection 删除项目集合；集合不存在时返回 false，不报错。
func (s *vectorIndexService) ResetCollection(ctx context.Context, projectCode string) (bool, error) {
	return s.vectorDB.DeleteCollection(ctx, s.CollectionName(projectCode))
}

// EnsureCollection 确保项目集合存在；doReset 为真时先清空旧集合。
func (s *vectorIndexService) EnsureCollection(ctx context.Context, projectCode string, doReset bool) error {
	collectionName := s.CollectionName(projectCode)
	created, err := s.vectorDB.CreateCollection(ctx, collectionName, s.embeddingSize, doReset)
	if err != nil {
		return fmt.Errorf("确保集合 %s 存在失败: %w", collectionName, err)
	}
	if created {
		log.Infof("[VectorIndexService] 集合已创建: %s", collectionName)
	}
	return nil
}

// IndexChunks 将一批分块向量化后写入项目集合。
// 记录 ID 由调用方通过 startID 分配，保证跨页连续且重复写入可覆盖。
func (s *vectorIndexService) IndexChunks(ctx context.Context, projectCode string, chunks []*model.DataChunk, startID int) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))
	recordIDs := make([]int, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.ChunkText
		metadatas[i] = map[string]interface{}{
			"source_file": chunk.SourceFile,
			"chunk_order": chunk.ChunkOrder,
		}
		recordIDs[i] = startID + i
	}

	vectors, err := s.embeddingLLM.EmbedTexts(ctx, texts, llm.DocumentTypeDocument)
	if err != nil {
		return fmt.Errorf("分块向量化失败: %w", err)
	}

	collectionName := s.CollectionName(projectCode)
	if err := s.vectorDB.InsertMany(ctx, collectionName, texts, vectors, metadatas, recordIDs, s.batchSize); err != nil {
		return fmt.Errorf("向集合 %s 写入向量失败: %w", collectionName, err)
	}
	return nil
}

// SearchByText 将查询文本向量化后在项目集合中检索。
// 集合不存在或无命中时返回空序列。
func (s *vectorIndexService) SearchByText(ctx context.Context, projectCode, text string, limit int) ([]vectordb.RetrievedDocument, error) {
	vectors, err := s.embeddingLLM.EmbedTexts(ctx, []string{text}, llm.DocumentTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("查询向量化返回空结果")
	}
	return s.vectorDB.SearchByVector(ctx, s.CollectionName(projectCode), vectors[0], limit)
}
