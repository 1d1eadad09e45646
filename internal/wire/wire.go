// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"

	"rag-gateway/internal/application/chat"
	"rag-gateway/internal/application/ingest"
	"rag-gateway/internal/application/kb"
	"rag-gateway/internal/application/rag"
	"rag-gateway/internal/application/user"
	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/application/weather"
	"rag-gateway/internal/config"
	"rag-gateway/internal/infrastructure/embedding"
	"rag-gateway/internal/infrastructure/llm"
	"rag-gateway/internal/infrastructure/mcp"
	"rag-gateway/internal/infrastructure/parser"
	"rag-gateway/internal/infrastructure/persistence/milvus"
	"rag-gateway/internal/infrastructure/persistence/postgres"
	"rag-gateway/internal/infrastructure/persistence/redis"
	"rag-gateway/internal/interfaces/http/handler"
	"rag-gateway/internal/interfaces/http/middleware"
	"rag-gateway/internal/interfaces/http/router"
	"rag-gateway/pkg/logger"
)

// App 组装完成的应用
type App struct {
	Router *router.Router
}

// InitializeApp 初始化整个应用，返回路由器和清理函数
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		// 按依赖关系倒序释放
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// 数据层
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return fail(fmt.Errorf("init postgres: %w", err))
	}
	cleanups = append(cleanups, func() {
		if err := pgClient.Close(); err != nil {
			logger.Warn(ctx, "failed to close postgres client", "error", err.Error())
		}
	})

	userRepo := postgres.NewUserRepository(pgClient)
	if err := userRepo.AutoMigrate(); err != nil {
		return fail(fmt.Errorf("migrate user schema: %w", err))
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return fail(fmt.Errorf("init redis: %w", err))
	}
	cleanups = append(cleanups, func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn(ctx, "failed to close redis client", "error", err.Error())
		}
	})

	memory := redis.NewChatMemory(redisClient, cfg.Memory.WindowSize, cfg.Memory.TTL)
	cache := redis.NewCache(redisClient)

	// 向量层
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return fail(fmt.Errorf("init milvus: %w", err))
	}
	cleanups = append(cleanups, func() {
		if err := milvusClient.Close(); err != nil {
			logger.Warn(ctx, "failed to close milvus client", "error", err.Error())
		}
	})

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		return fail(fmt.Errorf("init embedder: %w", err))
	}

	engine := milvus.NewEngine(milvusClient, embedder, cfg.Embedding.Dimension, cfg.Embedding.BatchSize)
	registry := vectorstore.NewRegistry(engine, cfg.RAG.DefaultCollection)

	// LLM 与工具
	models := llm.NewEinoFactory(cfg)
	agent := mcp.NewAgent(&cfg.Tool, models)
	cleanups = append(cleanups, func() {
		if err := agent.Close(); err != nil {
			logger.Warn(ctx, "failed to close mcp agent", "error", err.Error())
		}
	})

	// 应用层
	pipeline := ingest.NewPipeline(registry, parser.NewTikaParser(&cfg.Parser), ingest.Options{
		ChunkSize:    cfg.Parser.ChunkSize,
		ChunkOverlap: cfg.Parser.ChunkOverlap,
		Atomic:       cfg.Ingest.Atomic,
	})
	retriever := rag.NewRetriever(registry, cfg.RAG.TopK, cfg.RAG.ScoreThreshold)
	weatherSvc := weather.NewService(cfg.Weather.APIKey, cfg.Weather.BaseURL)
	userSvc := user.NewService(userRepo)
	chatSvc := chat.NewService(models, retriever, memory, agent, chat.Options{
		TriggerKeyword: cfg.Tool.TriggerKeyword,
		Tools: []tool.BaseTool{
			chat.NewWeatherTool(weatherSvc),
			chat.NewUserRegisterTool(userSvc),
		},
	})
	kbAdmin := kb.NewAdmin(registry, engine)

	// 接口层
	handlers := router.Handlers{
		Health:        handler.NewHealthHandler(pgClient, redisClient, milvusClient),
		Rag:           handler.NewRagHandler(pipeline, chatSvc, cfg.Server.HTTP.MaxUploadMB),
		KnowledgeBase: handler.NewKnowledgeBaseHandler(kbAdmin),
		Chat:          handler.NewChatHandler(chatSvc),
		Weather:       handler.NewWeatherHandler(weatherSvc, cache),
		User:          handler.NewUserHandler(userSvc),
		RateLimit: middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:           cfg.Security.RateLimit.Enabled,
			RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
			Burst:             cfg.Security.RateLimit.Burst,
		}, redis.NewRateLimiter(redisClient)),
	}

	return &App{Router: router.New(cfg, handlers)}, cleanup, nil
}
