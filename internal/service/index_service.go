package service

import (
	"context"
	"errors"
	"fmt"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/repository"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/vectordb"
)

// IndexingError 表示一次索引运行中途失败。
// Inserted 记录失败前已成功写入的分块数，供调用方回报部分进度。
type IndexingError struct {
	Inserted int
	Err      error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("索引在写入 %d 条记录后失败: %v", e.Inserted, e.Err)
}

func (e *IndexingError) Unwrap() error {
	return e.Err
}

// ErrProjectNotFound 表示目标项目不存在。
var ErrProjectNotFound = errors.New("project not found")

// IndexService 负责驱动整个项目的分页索引流水线。
type IndexService interface {
	PushIndex(ctx context.Context, projectCode string, doReset bool) (int, error)
	IndexInfo(ctx context.Context, projectCode string) (*vectordb.CollectionInfo, int64, error)
}

type indexService struct {
	projectRepo repository.ProjectRepository
	chunkRepo   repository.ChunkRepository
	vectorIndex VectorIndexService
	pageSize    int
}

// NewIndexService 创建一个新的 IndexService 实例。
func NewIndexService(projectRepo repository.ProjectRepository, chunkRepo repository.ChunkRepository, vectorIndex VectorIndexService, cfg config.ChunkingConfig) IndexService {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &indexService{
		projectRepo: projectRepo,
		chunkRepo:   chunkRepo,
		vectorIndex: vectorIndex,
		pageSize:    pageSize,
	}
}

// PushIndex 将项目的全部分块逐页写入向量集合，返回写入的分块总数。
// doReset 只在本次运行的第一页生效，后续页在既有集合上累加。
// 中途失败时返回 *IndexingError，其中带有已写入的分块数。
func (s *indexService) PushIndex(ctx context.Context, projectCode string, doReset bool) (int, error) {
	project, err := s.projectRepo.GetByCode(projectCode)
	if err != nil {
		return 0, fmt.Errorf("查询项目失败: %w", err)
	}
	if project == nil {
		return 0, ErrProjectNotFound
	}

	log.Infof("[IndexService] 开始索引项目 %s, doReset: %v, pageSize: %d", projectCode, doReset, s.pageSize)

	// 集合重置只发生在一次运行的开头，之后的页在同一集合上继续写入
	if err := s.vectorIndex.EnsureCollection(ctx, projectCode, doReset); err != nil {
		return 0, &IndexingError{Inserted: 0, Err: err}
	}

	inserted := 0
	nextID := 0
	for pageNo := 1; ; pageNo++ {
		chunks, err := s.chunkRepo.FindPageByProject(project.ID, pageNo, s.pageSize)
		if err != nil {
			return inserted, &IndexingError{Inserted: inserted, Err: fmt.Errorf("读取第 %d 页分块失败: %w", pageNo, err)}
		}
		// 空页表示数据源耗尽，运行正常结束
		if len(chunks) == 0 {
			break
		}

		if err := s.vectorIndex.IndexChunks(ctx, projectCode, chunks, nextID); err != nil {
			log.Errorf("[IndexService] 项目 %s 第 %d 页索引失败: %v", projectCode, pageNo, err)
			return inserted, &IndexingError{Inserted: inserted, Err: err}
		}

		inserted += len(chunks)
		nextID += len(chunks)
		log.Infof("[IndexService] 项目 %s 第 %d 页索引完成, 本页 %d 条, 累计 %d 条", projectCode, pageNo, len(chunks), inserted)
	}

	log.Infof("[IndexService] 项目 %s 索引完成, 共写入 %d 条分块", projectCode, inserted)
	return inserted, nil
}

// IndexInfo 返回项目向量集合的状态以及数据库中可供索引的分块总数，
// 便于调用方对比两边的记录数判断索引是否完整。
func (s *indexService) IndexInfo(ctx context.Context, projectCode string) (*vectordb.CollectionInfo, int64, error) {
	project, err := s.projectRepo.GetByCode(projectCode)
	if err != nil {
		return nil, 0, fmt.Errorf("查询项目失败: %w", err)
	}
	if project == nil {
		return nil, 0, ErrProjectNotFound
	}

	info, err := s.vectorIndex.GetCollectionInfo(ctx, projectCode)
	if err != nil {
		return nil, 0, err
	}

	chunkCount, err := s.chunkRepo.CountByProject(project.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("统计项目分块失败: %w", err)
	}
	return info, chunkCount, nil
}
