package service

import (
	"context"
	"testing"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndexService(db *fakeVectorDB, provider *fakeLLM) VectorIndexService {
	return NewVectorIndexService(db, provider,
		config.VectorDBConfig{BatchSize: 50},
		config.LLMConfig{EmbeddingSize: 2},
	)
}

func TestCollectionName(t *testing.T) {
	svc := newTestVectorIndexService(newFakeVectorDB(), &fakeLLM{})

	tests := []struct {
		name        string
		projectCode string
		want        string
	}{
		{name: "plain code", projectCode: "proj1", want: "collection_proj1"},
		{name: "code with underscore", projectCode: "my_docs", want: "collection_my_docs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.CollectionName(tt.projectCode))
		})
	}
}

func TestEnsureCollectionIsIdempotent(t *testing.T) {
	db := newFakeVectorDB()
	svc := newTestVectorIndexService(db, &fakeLLM{})
	ctx := context.Background()

	require.NoError(t, svc.EnsureCollection(ctx, "proj1", false))
	require.NoError(t, svc.EnsureCollection(ctx, "proj1", false))

	info, err := svc.GetCollectionInfo(ctx, "proj1")
	require.NoError(t, err)
	assert.True(t, info.Exists)
}

func TestEnsureCollectionWithResetDropsRecords(t *testing.T) {
	db := newFakeVectorDB()
	provider := &fakeLLM{}
	svc := newTestVectorIndexService(db, provider)
	ctx := context.Background()

	require.NoError(t, svc.EnsureCollection(ctx, "proj1", false))
	require.NoError(t, svc.IndexChunks(ctx, "proj1", []*model.DataChunk{
		{ChunkText: "alpha"}, {ChunkText: "beta"},
	}, 0))

	info, err := svc.GetCollectionInfo(ctx, "proj1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.RecordCount)

	// 重置后集合存在但记录数归零
	require.NoError(t, svc.EnsureCollection(ctx, "proj1", true))
	info, err = svc.GetCollectionInfo(ctx, "proj1")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(0), info.RecordCount)
}

func TestIndexChunksUsesDocumentIntentAndCallerIDs(t *testing.T) {
	db := newFakeVectorDB()
	provider := &fakeLLM{}
	svc := newTestVectorIndexService(db, provider)
	ctx := context.Background()

	require.NoError(t, svc.EnsureCollection(ctx, "proj1", false))
	require.NoError(t, svc.IndexChunks(ctx, "proj1", []*model.DataChunk{
		{ChunkText: "alpha"}, {ChunkText: "beta"}, {ChunkText: "gamma"},
	}, 5))

	assert.Equal(t, llm.DocumentTypeDocument, provider.lastDocumentType)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, provider.embeddedTexts)

	// 记录 ID 由调用方的 startID 起连续分配
	records := db.collections["collection_proj1"]
	assert.Equal(t, "alpha", records[5])
	assert.Equal(t, "beta", records[6])
	assert.Equal(t, "gamma", records[7])
}

func TestIndexChunksWithEmptyInputIsNoOp(t *testing.T) {
	db := newFakeVectorDB()
	provider := &fakeLLM{}
	svc := newTestVectorIndexService(db, provider)

	require.NoError(t, svc.IndexChunks(context.Background(), "proj1", nil, 0))
	assert.Empty(t, provider.embeddedTexts)
}

func TestSearchByTextUsesQueryIntent(t *testing.T) {
	db := newFakeVectorDB()
	provider := &fakeLLM{}
	svc := newTestVectorIndexService(db, provider)
	ctx := context.Background()

	require.NoError(t, svc.EnsureCollection(ctx, "proj1", false))
	_, err := svc.SearchByText(ctx, "proj1", "what is rag", 5)
	require.NoError(t, err)

	assert.Equal(t, llm.DocumentTypeQuery, provider.lastDocumentType)
}

func TestSearchByTextOnAbsentCollectionReturnsEmpty(t *testing.T) {
	svc := newTestVectorIndexService(newFakeVectorDB(), &fakeLLM{})

	results, err := svc.SearchByText(context.Background(), "missing", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResetCollection(t *testing.T) {
	db := newFakeVectorDB()
	svc := newTestVectorIndexService(db, &fakeLLM{})
	ctx := context.Background()

	// 集合不存在时返回 false 且不报错
	deleted, err := svc.ResetCollection(ctx, "proj1")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, svc.EnsureCollection(ctx, "proj1", false))
	deleted, err = svc.ResetCollection(ctx, "proj1")
	require.NoError(t, err)
	assert.True(t, deleted)
}
