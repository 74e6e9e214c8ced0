package vectordb

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"doc-qa-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// elasticProvider 基于 Elasticsearch 的 dense_vector + kNN 实现 Provider。
// 每个集合对应一个独立的 ES 索引。
type elasticProvider struct {
	client         *elasticsearch.Client
	distanceMethod string
}

// esDocument 是写入 Elasticsearch 的记录结构。
type esDocument struct {
	Text     string                 `json:"text"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewElasticsearchProvider 创建一个 Elasticsearch Provider 实例。
func NewElasticsearchProvider(addresses, username, password, distanceMethod string) (Provider, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(addresses, ","),
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	similarity := "cosine"
	if distanceMethod == DistanceDot {
		similarity = "dot_product"
	}

	return &elasticProvider{client: client, distanceMethod: similarity}, nil
}

// Connect 验证 Elasticsearch 集群可达。
func (e *elasticProvider) Connect(ctx context.Context) error {
	res, err := e.client.Info(e.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch returned error: %s", res.String())
	}
	log.Info("[ElasticProvider] 已连接到 Elasticsearch")
	return nil
}

// Disconnect 对 HTTP 客户端而言无需释放资源。
func (e *elasticProvider) Disconnect(ctx context.Context) error {
	return nil
}

// IsCollectionExisted 检查索引是否存在。
func (e *elasticProvider) IsCollectionExisted(ctx context.Context, collectionName string) (bool, error) {
	res, err := e.client.Indices.Exists([]string{collectionName},
		e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index %s: %w", collectionName, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d while checking index %s", res.StatusCode, collectionName)
	}
}

// ListAllCollections 列出所有索引名称。
func (e *elasticProvider) ListAllCollections(ctx context.Context) ([]string, error) {
	res, err := e.client.Cat.Indices(
		e.client.Cat.Indices.WithContext(ctx),
		e.client.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode indices list: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Index)
	}
	return names, nil
}

// GetCollectionInfo 返回索引的健康状态与文档数。
func (e *elasticProvider) GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error) {
	existed, err := e.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !existed {
		return &CollectionInfo{Name: collectionName, Exists: false}, nil
	}

	res, err := e.client.Cat.Indices(
		e.client.Cat.Indices.WithContext(ctx),
		e.client.Cat.Indices.WithIndex(collectionName),
		e.client.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get index info for %s: %w", collectionName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	var rows []struct {
		Health    string `json:"health"`
		DocsCount string `json:"docs.count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode index info: %w", err)
	}

	info := &CollectionInfo{Name: collectionName, Exists: true}
	if len(rows) > 0 {
		info.Status = rows[0].Health
		if count, convErr := strconv.ParseInt(rows[0].DocsCount, 10, 64); convErr == nil {
			info.RecordCount = count
		}
	}
	return info, nil
}

// CreateCollection 创建索引并配置 dense_vector 映射；doReset 为真时先删除旧索引。
func (e *elasticProvider) CreateCollection(ctx context.Context, collectionName string, embeddingSize int, doReset bool) (bool, error) {
	if doReset {
		if _, err := e.DeleteCollection(ctx, collectionName); err != nil {
			return false, err
		}
	}

	existed, err := e.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return false, err
	}
	if existed {
		log.Warnf("[ElasticProvider] 索引 %s 已存在", collectionName)
		return false, nil
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"text": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "%s"
				},
				"metadata": { "type": "object", "enabled": false }
			}
		}
	}`, embeddingSize, e.distanceMethod)

	res, err := e.client.Indices.Create(
		collectionName,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", collectionName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[ElasticProvider] 创建索引 %s 时 Elasticsearch 返回错误: %s", collectionName, res.String())
		return false, fmt.Errorf("elasticsearch returned error while creating index %s", collectionName)
	}

	log.Infof("[ElasticProvider] 索引创建成功: %s (维度: %d)", collectionName, embeddingSize)
	return true, nil
}

// DeleteCollection 删除索引；不存在时返回 false。
func (e *elasticProvider) DeleteCollection(ctx context.Context, collectionName string) (bool, error) {
	existed, err := e.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return false, err
	}
	if !existed {
		log.Warnf("[ElasticProvider] 索引 %s 不存在, 跳过删除", collectionName)
		return false, nil
	}

	res, err := e.client.Indices.Delete([]string{collectionName},
		e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to delete index %s: %w", collectionName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, fmt.Errorf("elasticsearch returned error while deleting index %s: %s", collectionName, res.String())
	}

	log.Infof("[ElasticProvider] 索引已删除: %s", collectionName)
	return true, nil
}

// InsertOne 插入单条记录。
func (e *elasticProvider) InsertOne(ctx context.Context, collectionName, text string, vector []float32, metadata map[string]interface{}, recordID int) error {
	existed, err := e.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionName)
	}

	doc := esDocument{Text: text, Vector: vector, Metadata: metadata}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      collectionName,
		DocumentID: strconv.Itoa(recordID),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[ElasticProvider] 索引文档失败: %s", res.String())
		return fmt.Errorf("elasticsearch returned error while indexing document %d", recordID)
	}
	return nil
}

// InsertMany 通过 Bulk API 批量插入记录，按 batchSize 分批。
func (e *elasticProvider) InsertMany(ctx context.Context, collectionName string, texts []string, vectors [][]float32, metadatas []map[string]interface{}, recordIDs []int, batchSize int) error {
	existed, err := e.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return err
	}
	if !existed {
		log.Errorf("[ElasticProvider] 索引 %s 不存在, 无法插入", collectionName)
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionName)
	}

	if batchSize <= 0 {
		batchSize = 50
	}

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var buf bytes.Buffer
		for i := start; i < end; i++ {
			meta := fmt.Sprintf(`{"index":{"_index":"%s","_id":"%d"}}`, collectionName, recordIDs[i])
			buf.WriteString(meta)
			buf.WriteByte('\n')

			var metadata map[string]interface{}
			if metadatas != nil {
				metadata = metadatas[i]
			}
			docBytes, err := json.Marshal(esDocument{Text: texts[i], Vector: vectors[i], Metadata: metadata})
			if err != nil {
				return fmt.Errorf("failed to marshal document %d: %w", recordIDs[i], err)
			}
			buf.Write(docBytes)
			buf.WriteByte('\n')
		}

		res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()),
			e.client.Bulk.WithContext(ctx),
			e.client.Bulk.WithRefresh("true"),
		)
		if err != nil {
			log.Errorf("[ElasticProvider] 批量插入失败 (索引: %s, 批次起点: %d): %v", collectionName, start, err)
			return fmt.Errorf("bulk insert failed: %w", err)
		}
		if res.IsError() {
			res.Body.Close()
			return fmt.Errorf("elasticsearch returned error during bulk insert: %s", res.String())
		}
		// _bulk 在 HTTP 200 下仍可能包含失败的单条操作，必须逐项检查
		bulkErr := parseBulkResponse(res.Body)
		res.Body.Close()
		if bulkErr != nil {
			log.Errorf("[ElasticProvider] 批量插入存在失败记录 (索引: %s, 批次起点: %d): %v", collectionName, start, bulkErr)
			return bulkErr
		}
	}

	log.Infof("[ElasticProvider] 已向索引 %s 插入 %d 条记录", collectionName, len(texts))
	return nil
}

// bulkItemResult 是 _bulk 响应 items 数组中单条操作的结果。
type bulkItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// parseBulkResponse 检查 _bulk 响应体。整体 HTTP 200 时单条文档仍可能写入失败
// (顶层 errors 为 true)，此时返回第一条失败记录的错误。
func parseBulkResponse(body io.Reader) error {
	var resp struct {
		Errors bool                        `json:"errors"`
		Items  []map[string]bulkItemResult `json:"items"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !resp.Errors {
		return nil
	}
	for _, item := range resp.Items {
		for action, result := range item {
			if result.Status >= 300 {
				return fmt.Errorf("bulk %s of record %s failed with status %d: %s: %s",
					action, result.ID, result.Status, result.Error.Type, result.Error.Reason)
			}
		}
	}
	return fmt.Errorf("bulk response reported errors without a failed item")
}

// SearchByVector 执行 kNN 检索；索引不存在时返回空序列。
func (e *elasticProvider) SearchByVector(ctx context.Context, collectionName string, vector []float32, limit int) ([]RetrievedDocument, error) {
	existed, err := e.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !existed {
		log.Warnf("[ElasticProvider] 索引 %s 不存在, 返回空检索结果", collectionName)
		return []RetrievedDocument{}, nil
	}

	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              limit,
			"num_candidates": limit * 10,
		},
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(collectionName),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Score  float64    `json:"_score"`
				Source esDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]RetrievedDocument, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		docs = append(docs, RetrievedDocument{Score: hit.Score, Text: hit.Source.Text})
	}
	return docs, nil
}
