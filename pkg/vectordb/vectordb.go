// Package vectordb provides pluggable clients for vector store backends.
// 不同的向量引擎（Qdrant、Elasticsearch 等）被统一抽象在 Provider 契约之后，
// 新增后端只需实现该契约并在工厂中注册，调用方无需改动。
package vectordb

import (
	"context"
	"errors"
)

// 距离度量方式。
const (
	DistanceCosine = "cosine"
	DistanceDot    = "dot"
)

// ErrCollectionNotFound 表示操作针对一个不存在的集合，而该操作要求集合存在。
var ErrCollectionNotFound = errors.New("vectordb: collection not found")

// RetrievedDocument 表示一次相似度检索的单条结果，分数越高越相关。
// 只在进程内传递，不会被持久化。
type RetrievedDocument struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// CollectionInfo 以通用键值形式描述集合的状态，不泄漏后端原生类型。
type CollectionInfo struct {
	Name        string `json:"name"`
	Exists      bool   `json:"exists"`
	RecordCount int64  `json:"record_count"`
	Status      string `json:"status"`
}

// Provider 定义了向量存储能力的统一契约。
// 除明确说明外，所有操作对重复的相同调用幂等。
type Provider interface {
	// Connect 建立与向量数据库的连接（或验证可达性）。
	Connect(ctx context.Context) error
	// Disconnect 释放连接资源。
	Disconnect(ctx context.Context) error
	// IsCollectionExisted 检查集合是否存在。
	IsCollectionExisted(ctx context.Context, collectionName string) (bool, error)
	// ListAllCollections 列出所有集合名称。
	ListAllCollections(ctx context.Context) ([]string, error)
	// GetCollectionInfo 返回集合的存在性、记录数与索引状态。
	GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error)
	// CreateCollection 创建集合；doReset 为真时先无条件删除。
	// 集合已存在且未要求重置时返回 false（已存在，不是错误）。
	CreateCollection(ctx context.Context, collectionName string, embeddingSize int, doReset bool) (bool, error)
	// DeleteCollection 删除集合；集合不存在时返回 false，不报错。
	DeleteCollection(ctx context.Context, collectionName string) (bool, error)
	// InsertOne 插入单条记录，记录 ID 由调用方分配。
	InsertOne(ctx context.Context, collectionName, text string, vector []float32, metadata map[string]interface{}, recordID int) error
	// InsertMany 批量插入记录，按 batchSize 分批以约束单次请求大小。
	InsertMany(ctx context.Context, collectionName string, texts []string, vectors [][]float32, metadatas []map[string]interface{}, recordIDs []int, batchSize int) error
	// SearchByVector 返回与查询向量最近的 limit 条结果，按相似度降序；
	// 集合不存在或无命中时返回空序列而非错误。
	SearchByVector(ctx context.Context, collectionName string, vector []float32, limit int) ([]RetrievedDocument, error)
}
