// Package pipeline 定义了文档处理的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/model"
	"doc-qa-go/internal/repository"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/storage"
	"doc-qa-go/pkg/tasks"
	"doc-qa-go/pkg/tika"

	"github.com/minio/minio-go/v7"
)

// Processor 封装了文档处理的所有依赖和逻辑。
// 处理结果是 data_chunks 表中的分块记录，供后续索引流水线分页消费。
type Processor struct {
	tikaClient  *tika.Client
	minioCfg    config.MinIOConfig
	chunkingCfg config.ChunkingConfig
	chunkRepo   repository.ChunkRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	minioCfg config.MinIOConfig,
	chunkingCfg config.ChunkingConfig,
	chunkRepo repository.ChunkRepository,
) *Processor {
	return &Processor{
		tikaClient:  tikaClient,
		minioCfg:    minioCfg,
		chunkingCfg: chunkingCfg,
		chunkRepo:   chunkRepo,
	}
}

// Process 是文档处理的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	log.Infof("[Processor] 开始处理文档, Project: %s, Object: %s", task.ProjectCode, task.ObjectName)

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	object, err := storage.MinioClient.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从MinIO对象流中读取内容到缓冲区失败, Error: %v", err)
		return fmt.Errorf("读取MinIO对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	textContent, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		log.Warnf("[Processor] Tika提取的文本内容为空, 处理中止, FileName: %s", task.FileName)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, chunkOverlap: %d", p.chunkingCfg.ChunkSize, p.chunkingCfg.ChunkOverlap)
	chunks := p.splitText(textContent, p.chunkingCfg.ChunkSize, p.chunkingCfg.ChunkOverlap)
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, FileName: %s", task.FileName)
		return errors.New("未生成任何文本分块")
	}

	// 4. 替换该源文件的既有分块记录（重复处理幂等）
	log.Info("[Processor] 步骤4: 将分块文本存入数据库")
	dataChunks := make([]*model.DataChunk, 0, len(chunks))
	for i, chunk := range chunks {
		dataChunks = append(dataChunks, &model.DataChunk{
			ProjectID:  task.ProjectID,
			SourceFile: task.ObjectName,
			ChunkText:  chunk,
			ChunkOrder: i,
		})
	}
	if err := p.chunkRepo.ReplaceForSource(task.ProjectID, task.ObjectName, dataChunks); err != nil {
		log.Errorf("[Processor] 步骤4: 批量保存文本分块到数据库失败, Error: %v", err)
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}
	log.Infof("[Processor] 步骤4: 成功将 %d 个分块存入数据库", len(dataChunks))

	log.Infof("[Processor] 文档处理完成, Project: %s, Object: %s", task.ProjectCode, task.ObjectName)
	return nil
}

// splitText 将长文本按指定大小和重叠进行切分。
func (p *Processor) splitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkSize <= chunkOverlap {
		return p.simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return chunks
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func (p *Processor) simpleSplit(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return chunks
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
