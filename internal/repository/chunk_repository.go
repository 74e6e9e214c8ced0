package repository

import (
	"doc-qa-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 data_chunks 表的数据操作接口。
type ChunkRepository interface {
	ReplaceForSource(projectID uint, sourceFile string, chunks []*model.DataChunk) error
	FindPageByProject(projectID uint, pageNo, pageSize int) ([]*model.DataChunk, error)
	CountByProject(projectID uint) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// ReplaceForSource 在一个事务中替换某个源文件的全部分块，保证重复处理幂等。
func (r *chunkRepository) ReplaceForSource(projectID uint, sourceFile string, chunks []*model.DataChunk) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND source_file = ?", projectID, sourceFile).
			Delete(&model.DataChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// FindPageByProject 按主键顺序返回项目分块的一页，页码从 1 开始。
// 超出范围的页返回空切片。
func (r *chunkRepository) FindPageByProject(projectID uint, pageNo, pageSize int) ([]*model.DataChunk, error) {
	if pageNo <= 0 {
		pageNo = 1
	}
	var chunks []*model.DataChunk
	err := r.db.Where("project_id = ?", projectID).
		Order("id ASC").
		Offset((pageNo - 1) * pageSize).
		Limit(pageSize).
		Find(&chunks).Error
	return chunks, err
}

// CountByProject 返回项目的分块总数。
func (r *chunkRepository) CountByProject(projectID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.DataChunk{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}
