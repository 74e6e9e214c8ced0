package vectordb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBulkTestServer 模拟一个 Elasticsearch 节点：HEAD 请求(索引存在性检查)
// 返回 200，_bulk 请求返回给定的响应体。
func newBulkTestServer(t *testing.T, bulkBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.True(t, strings.HasSuffix(r.URL.Path, "/_bulk"), "unexpected path: %s", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, bulkBody)
	}))
}

func TestInsertManyDetectsFailedBulkItems(t *testing.T) {
	// 整体 HTTP 200，但第二条文档写入失败
	srv := newBulkTestServer(t, `{
		"took": 3,
		"errors": true,
		"items": [
			{"index": {"_index": "collection_demo", "_id": "0", "status": 201}},
			{"index": {"_index": "collection_demo", "_id": "1", "status": 400,
				"error": {"type": "mapper_parsing_exception", "reason": "failed to parse field [vector]"}}}
		]
	}`)
	defer srv.Close()

	provider, err := NewElasticsearchProvider(srv.URL, "", "", DistanceCosine)
	require.NoError(t, err)

	err = provider.InsertMany(context.Background(), "collection_demo",
		[]string{"a", "b"}, [][]float32{{0.1}, {0.2}}, nil, []int{0, 1}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1")
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestInsertManySucceedsWhenAllItemsAccepted(t *testing.T) {
	srv := newBulkTestServer(t, `{
		"took": 2,
		"errors": false,
		"items": [
			{"index": {"_index": "collection_demo", "_id": "0", "status": 201}},
			{"index": {"_index": "collection_demo", "_id": "1", "status": 201}}
		]
	}`)
	defer srv.Close()

	provider, err := NewElasticsearchProvider(srv.URL, "", "", DistanceCosine)
	require.NoError(t, err)

	err = provider.InsertMany(context.Background(), "collection_demo",
		[]string{"a", "b"}, [][]float32{{0.1}, {0.2}}, nil, []int{0, 1}, 10)
	assert.NoError(t, err)
}

func TestParseBulkResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "全部成功",
			body: `{"errors": false, "items": [{"index": {"_id": "0", "status": 201}}]}`,
		},
		{
			name: "单条失败",
			body: `{"errors": true, "items": [
				{"index": {"_id": "0", "status": 201}},
				{"index": {"_id": "7", "status": 429, "error": {"type": "es_rejected_execution_exception", "reason": "queue full"}}}
			]}`,
			wantErr: "es_rejected_execution_exception",
		},
		{
			name:    "响应体损坏",
			body:    `{"errors": tru`,
			wantErr: "failed to decode bulk response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseBulkResponse(strings.NewReader(tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
