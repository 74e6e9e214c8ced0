package service

import (
	"context"
	"errors"
	"testing"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChunks(repo *fakeChunkRepo, projectID uint, count int) {
	for i := 0; i < count; i++ {
		repo.chunks = append(repo.chunks, &model.DataChunk{
			ID:         uint(i + 1),
			ProjectID:  projectID,
			SourceFile: "doc.pdf",
			ChunkText:  "chunk",
			ChunkOrder: i,
		})
	}
}

func TestPushIndexWalksAllPagesWithContiguousIDs(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	project, err := projectRepo.GetOrCreateByCode("proj1")
	require.NoError(t, err)

	chunkRepo := &fakeChunkRepo{}
	seedChunks(chunkRepo, project.ID, 8)

	vectorIndex := &fakeVectorIndex{}
	svc := NewIndexService(projectRepo, chunkRepo, vectorIndex, config.ChunkingConfig{PageSize: 5})

	inserted, err := svc.PushIndex(context.Background(), "proj1", true)
	require.NoError(t, err)
	assert.Equal(t, 8, inserted)

	// 页大小 5 时 8 条分块产生两页：5 条与 3 条，记录 ID 跨页连续
	require.Len(t, vectorIndex.calls, 2)
	assert.Equal(t, 5, vectorIndex.calls[0].chunkCount)
	assert.Equal(t, 0, vectorIndex.calls[0].startID)
	assert.Equal(t, 3, vectorIndex.calls[1].chunkCount)
	assert.Equal(t, 5, vectorIndex.calls[1].startID)

	// 集合重置只发生一次
	assert.Equal(t, []bool{true}, vectorIndex.ensureCalls)
}

func TestPushIndexWithoutResetKeepsCollection(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	project, err := projectRepo.GetOrCreateByCode("proj1")
	require.NoError(t, err)

	chunkRepo := &fakeChunkRepo{}
	seedChunks(chunkRepo, project.ID, 3)

	vectorIndex := &fakeVectorIndex{}
	svc := NewIndexService(projectRepo, chunkRepo, vectorIndex, config.ChunkingConfig{PageSize: 5})

	_, err = svc.PushIndex(context.Background(), "proj1", false)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, vectorIndex.ensureCalls)
}

func TestPushIndexWithEmptyProjectInsertsNothing(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	_, err := projectRepo.GetOrCreateByCode("proj1")
	require.NoError(t, err)

	vectorIndex := &fakeVectorIndex{}
	svc := NewIndexService(projectRepo, &fakeChunkRepo{}, vectorIndex, config.ChunkingConfig{PageSize: 5})

	inserted, err := svc.PushIndex(context.Background(), "proj1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Empty(t, vectorIndex.calls)
}

func TestPushIndexUnknownProject(t *testing.T) {
	svc := NewIndexService(newFakeProjectRepo(), &fakeChunkRepo{}, &fakeVectorIndex{}, config.ChunkingConfig{PageSize: 5})

	_, err := svc.PushIndex(context.Background(), "missing", false)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestIndexInfoReportsChunkCount(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	project, err := projectRepo.GetOrCreateByCode("proj1")
	require.NoError(t, err)

	chunkRepo := &fakeChunkRepo{}
	seedChunks(chunkRepo, project.ID, 3)

	svc := NewIndexService(projectRepo, chunkRepo, &fakeVectorIndex{}, config.ChunkingConfig{PageSize: 5})

	info, chunkCount, err := svc.IndexInfo(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Equal(t, "collection_proj1", info.Name)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(3), chunkCount)
}

func TestIndexInfoUnknownProject(t *testing.T) {
	svc := NewIndexService(newFakeProjectRepo(), &fakeChunkRepo{}, &fakeVectorIndex{}, config.ChunkingConfig{})

	_, _, err := svc.IndexInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestPushIndexMidRunFailureReportsPartialCount(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	project, err := projectRepo.GetOrCreateByCode("proj1")
	require.NoError(t, err)

	chunkRepo := &fakeChunkRepo{}
	seedChunks(chunkRepo, project.ID, 12)

	// 第二页写入失败
	vectorIndex := &fakeVectorIndex{failAtCall: 2}
	svc := NewIndexService(projectRepo, chunkRepo, vectorIndex, config.ChunkingConfig{PageSize: 4})

	inserted, err := svc.PushIndex(context.Background(), "proj1", true)
	require.Error(t, err)
	assert.Equal(t, 4, inserted)

	var indexingErr *IndexingError
	require.True(t, errors.As(err, &indexingErr))
	assert.Equal(t, 4, indexingErr.Inserted)
}
