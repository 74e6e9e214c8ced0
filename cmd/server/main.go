// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/handler"
	"doc-qa-go/internal/middleware"
	"doc-qa-go/internal/pipeline"
	"doc-qa-go/internal/repository"
	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/database"
	"doc-qa-go/pkg/kafka"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/llm/templates"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/storage"
	"doc-qa-go/pkg/tika"
	"doc-qa-go/pkg/vectordb"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、MinIO 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 LLM 提供商：生成与向量化两条路径独立实例化
	llmFactory := llm.NewFactory(cfg.LLM)
	generationLLM, err := llmFactory.Create(cfg.LLM.GenerationBackend)
	if err != nil {
		log.Fatalf("创建生成模型提供商失败: %v", err)
	}
	generationLLM.SetGenerationModel(cfg.LLM.GenerationModelID)

	embeddingLLM, err := llmFactory.Create(cfg.LLM.EmbeddingBackend)
	if err != nil {
		log.Fatalf("创建向量化提供商失败: %v", err)
	}
	embeddingLLM.SetEmbeddingModel(cfg.LLM.EmbeddingModelID, cfg.LLM.EmbeddingSize)

	// 5. 初始化向量数据库
	vectorDBFactory := vectordb.NewFactory(cfg.VectorDB)
	vectorDB, err := vectorDBFactory.Create(cfg.VectorDB.Backend)
	if err != nil {
		log.Fatalf("创建向量数据库提供商失败: %v", err)
	}
	if err := vectorDB.Connect(context.Background()); err != nil {
		log.Fatalf("连接向量数据库失败: %v", err)
	}
	defer vectorDB.Disconnect(context.Background())

	// 6. 初始化提示词模板解析器
	parser := templates.NewParser(cfg.Template.Language, cfg.Template.DefaultLanguage)

	// 7. 初始化 Repository
	projectRepo := repository.NewProjectRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 8. 初始化 Service (依赖注入)
	tikaClient := tika.NewClient(cfg.Tika)
	projectService := service.NewProjectService(projectRepo)
	dataService := service.NewDataService(projectRepo, cfg.MinIO)
	vectorIndexService := service.NewVectorIndexService(vectorDB, embeddingLLM, cfg.VectorDB, cfg.LLM)
	indexService := service.NewIndexService(projectRepo, chunkRepo, vectorIndexService, cfg.Chunking)
	answerService := service.NewAnswerService(vectorIndexService, generationLLM, parser)

	// 9. 初始化文档处理管道 (Processor) 并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(tikaClient, cfg.MinIO, cfg.Chunking, chunkRepo)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 10. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 11. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Project 路由组
		projects := apiV1.Group("/projects")
		{
			projectHandler := handler.NewProjectHandler(projectService)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:code", projectHandler.GetProject)
		}

		// Data 路由组：文档上传
		data := apiV1.Group("/data")
		{
			data.POST("/upload/:project_code", handler.NewDataHandler(dataService).UploadDocument)
		}

		// NLP 路由组：索引与问答
		nlp := apiV1.Group("/nlp")
		{
			nlpHandler := handler.NewNLPHandler(indexService, vectorIndexService, answerService, conversationRepo)
			nlp.POST("/index/push/:project_code", nlpHandler.PushIndex)
			nlp.GET("/index/info/:project_code", nlpHandler.IndexInfo)
			nlp.POST("/index/search/:project_code", nlpHandler.SearchIndex)
			nlp.POST("/index/answer/:project_code", nlpHandler.AnswerQuestion)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
