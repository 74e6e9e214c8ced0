package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/repository"
	"doc-qa-go/pkg/kafka"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/storage"
	"doc-qa-go/pkg/tasks"

	"github.com/minio/minio-go/v7"
)

// DataService 负责文档文件的接收：上传到对象存储并投递异步处理任务。
type DataService interface {
	UploadDocument(ctx context.Context, projectCode, fileName string, reader io.Reader, size int64) (string, error)
}

type dataService struct {
	projectRepo repository.ProjectRepository
	minioCfg    config.MinIOConfig
}

// NewDataService 创建一个新的 DataService 实例。
func NewDataService(projectRepo repository.ProjectRepository, minioCfg config.MinIOConfig) DataService {
	return &dataService{
		projectRepo: projectRepo,
		minioCfg:    minioCfg,
	}
}

// UploadDocument 将文件写入 MinIO 并向 Kafka 投递一个文档处理任务。
// 返回对象存储中的对象名。
func (s *dataService) UploadDocument(ctx context.Context, projectCode, fileName string, reader io.Reader, size int64) (string, error) {
	project, err := s.projectRepo.GetOrCreateByCode(projectCode)
	if err != nil {
		return "", fmt.Errorf("查询项目失败: %w", err)
	}

	// 1. 上传到 MinIO，同时计算内容 MD5
	objectName := fmt.Sprintf("projects/%s/%s", projectCode, fileName)
	hasher := md5.New()
	teeReader := io.TeeReader(reader, hasher)

	log.Infof("[DataService] 步骤1: 上传文件到MinIO, Bucket: %s, Object: %s", s.minioCfg.BucketName, objectName)
	_, err = storage.MinioClient.PutObject(ctx, s.minioCfg.BucketName, objectName, teeReader, size, minio.PutObjectOptions{})
	if err != nil {
		log.Errorf("[DataService] 上传文件到MinIO失败, Object: %s, Error: %v", objectName, err)
		return "", fmt.Errorf("上传文件到 MinIO 失败: %w", err)
	}
	fileMD5 := hex.EncodeToString(hasher.Sum(nil))

	// 2. 投递异步处理任务
	task := tasks.DocumentProcessingTask{
		ProjectCode: projectCode,
		ProjectID:   project.ID,
		ObjectName:  objectName,
		FileName:    fileName,
		FileMD5:     fileMD5,
	}
	log.Infof("[DataService] 步骤2: 投递文档处理任务, Object: %s, MD5: %s", objectName, fileMD5)
	if err := kafka.ProduceDocumentTask(task); err != nil {
		log.Errorf("[DataService] 投递文档处理任务失败, Object: %s, Error: %v", objectName, err)
		return "", fmt.Errorf("投递文档处理任务失败: %w", err)
	}

	return objectName, nil
}
