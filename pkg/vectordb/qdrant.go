package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doc-qa-go/pkg/log"
)

// qdrantProvider 通过 Qdrant REST API 实现 Provider。
type qdrantProvider struct {
	client         *http.Client
	endpoint       string
	apiKey         string
	distanceMethod string
}

// NewQdrantProvider 创建一个 Qdrant Provider 实例。
func NewQdrantProvider(endpoint, apiKey, distanceMethod string, timeoutSeconds int) Provider {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	distance := "Cosine"
	if distanceMethod == DistanceDot {
		distance = "Dot"
	}

	return &qdrantProvider{
		client:         &http.Client{Timeout: timeout},
		endpoint:       endpoint,
		apiKey:         apiKey,
		distanceMethod: distance,
	}
}

// Qdrant API types

type qdrantCreateCollectionRequest struct {
	Vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	} `json:"vectors"`
}

type qdrantPoint struct {
	ID      int                    `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantUpsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      int                    `json:"id"`
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

type qdrantListCollectionsResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

type qdrantCollectionInfoResponse struct {
	Result struct {
		Status      string `json:"status"`
		PointsCount int64  `json:"points_count"`
	} `json:"result"`
}

// Connect 通过就绪探针验证 Qdrant 可达。
func (q *qdrantProvider) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant returned status %d", resp.StatusCode)
	}
	log.Infof("[QdrantProvider] 已连接到 Qdrant: %s", q.endpoint)
	return nil
}

// Disconnect 对 HTTP 客户端而言无需释放资源。
func (q *qdrantProvider) Disconnect(ctx context.Context) error {
	return nil
}

// IsCollectionExisted 检查集合是否存在。
func (q *qdrantProvider) IsCollectionExisted(ctx context.Context, collectionName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/collections/%s", q.endpoint, collectionName), nil)
	if err != nil {
		return false, err
	}
	q.setHeaders(req)

	resp, err := q.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d while checking collection %s", resp.StatusCode, collectionName)
	}
}

// ListAllCollections 列出所有集合名称。
func (q *qdrantProvider) ListAllCollections(ctx context.Context) ([]string, error) {
	var resp qdrantListCollectionsResponse
	if err := q.doRequest(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

// GetCollectionInfo 返回集合的状态与记录数。
func (q *qdrantProvider) GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error) {
	existed, err := q.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !existed {
		return &CollectionInfo{Name: collectionName, Exists: false}, nil
	}

	var resp qdrantCollectionInfoResponse
	if err := q.doRequest(ctx, http.MethodGet, "/collections/"+collectionName, nil, &resp); err != nil {
		return nil, err
	}
	return &CollectionInfo{
		Name:        collectionName,
		Exists:      true,
		RecordCount: resp.Result.PointsCount,
		Status:      resp.Result.Status,
	}, nil
}

// CreateCollection 创建集合；doReset 为真时先删除旧集合。
func (q *qdrantProvider) CreateCollection(ctx context.Context, collectionName string, embeddingSize int, doReset bool) (bool, error) {
	if doReset {
		if _, err := q.DeleteCollection(ctx, collectionName); err != nil {
			return false, err
		}
	}

	existed, err := q.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return false, err
	}
	if existed {
		log.Warnf("[QdrantProvider] 集合 %s 已存在", collectionName)
		return false, nil
	}

	reqBody := qdrantCreateCollectionRequest{}
	reqBody.Vectors.Size = embeddingSize
	reqBody.Vectors.Distance = q.distanceMethod

	if err := q.doRequest(ctx, http.MethodPut, "/collections/"+collectionName, reqBody, nil); err != nil {
		return false, err
	}
	log.Infof("[QdrantProvider] 集合创建成功: %s (维度: %d)", collectionName, embeddingSize)
	return true, nil
}

// DeleteCollection 删除集合；不存在时返回 false。
func (q *qdrantProvider) DeleteCollection(ctx context.Context, collectionName string) (bool, error) {
	existed, err := q.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return false, err
	}
	if !existed {
		log.Warnf("[QdrantProvider] 集合 %s 不存在, 跳过删除", collectionName)
		return false, nil
	}

	if err := q.doRequest(ctx, http.MethodDelete, "/collections/"+collectionName, nil, nil); err != nil {
		return false, err
	}
	log.Infof("[QdrantProvider] 集合已删除: %s", collectionName)
	return true, nil
}

// InsertOne 插入单条记录。
func (q *qdrantProvider) InsertOne(ctx context.Context, collectionName, text string, vector []float32, metadata map[string]interface{}, recordID int) error {
	return q.InsertMany(ctx, collectionName,
		[]string{text}, [][]float32{vector}, []map[string]interface{}{metadata}, []int{recordID}, 1)
}

// InsertMany 批量插入记录，按 batchSize 分批上传。
func (q *qdrantProvider) InsertMany(ctx context.Context, collectionName string, texts []string, vectors [][]float32, metadatas []map[string]interface{}, recordIDs []int, batchSize int) error {
	existed, err := q.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return err
	}
	if !existed {
		log.Errorf("[QdrantProvider] 集合 %s 不存在, 无法插入", collectionName)
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

		points := make([]qdrantPoint, 0, end-start)
		for i := start; i < end; i++ {
			payload := map[string]interface{}{"text": texts[i]}
			if metadatas != nil && metadatas[i] != nil {
				payload["metadata"] = metadatas[i]
			}
			points = append(points, qdrantPoint{
				ID:      recordIDs[i],
				Vector:  vectors[i],
				Payload: payload,
			})
		}

		reqBody := qdrantUpsertRequest{Points: points}
		if err := q.doRequest(ctx, http.MethodPut,
			fmt.Sprintf("/collections/%s/points", collectionName), reqBody, nil); err != nil {
			log.Errorf("[QdrantProvider] 批量插入失败 (集合: %s, 批次起点: %d): %v", collectionName, start, err)
			return err
		}
	}

	log.Infof("[QdrantProvider] 已向集合 %s 插入 %d 条记录", collectionName, len(texts))
	return nil
}

// SearchByVector 执行相似度检索；集合不存在时返回空序列。
func (q *qdrantProvider) SearchByVector(ctx context.Context, collectionName string, vector []float32, limit int) ([]RetrievedDocument, error) {
	existed, err := q.IsCollectionExisted(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !existed {
		log.Warnf("[QdrantProvider] 集合 %s 不存在, 返回空检索结果", collectionName)
		return []RetrievedDocument{}, nil
	}

	reqBody := qdrantSearchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	}

	var resp qdrantSearchResponse
	if err := q.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", collectionName), reqBody, &resp); err != nil {
		return nil, err
	}

	docs := make([]RetrievedDocument, 0, len(resp.Result))
	for _, r := range resp.Result {
		text, _ := r.Payload["text"].(string)
		docs = append(docs, RetrievedDocument{Score: r.Score, Text: text})
	}
	return docs, nil
}

// doRequest 向 Qdrant 发送一次 JSON 请求并解析响应。
func (q *qdrantProvider) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	q.setHeaders(req)

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (q *qdrantProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
}
