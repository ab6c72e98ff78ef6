package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"medical-assistant-be/internal/config"
	"medical-assistant-be/internal/controller"
	"medical-assistant-be/internal/handler"
	"medical-assistant-be/internal/pkg/logger"
	"medical-assistant-be/internal/repository/memory"
	"medical-assistant-be/internal/repository/unitofwork"
	"medical-assistant-be/internal/service"
	"medical-assistant-be/internal/websocket"
	"medical-assistant-be/pkg/dialogue"
	"medical-assistant-be/pkg/dialogue/classify"
	"medical-assistant-be/pkg/dialogue/extract"
	"medical-assistant-be/pkg/dialogue/followup"
	"medical-assistant-be/pkg/dialogue/pii"
	"medical-assistant-be/pkg/dialogue/response"
	"medical-assistant-be/pkg/dialogue/session"
	"medical-assistant-be/pkg/embedding"
	"medical-assistant-be/pkg/embedding/jina"
	"medical-assistant-be/pkg/knowledge"
	"medical-assistant-be/pkg/llm/factory"

	pktNats "medical-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	ThreadController    controller.IThreadController
	KnowledgeController controller.IKnowledgeController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Alerts
	AlertHandler *handler.AlertHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	pipeLogger := initPipelineLogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaAPIKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// LLM Provider based on Config
	llmProvider, err := factory.NewProvider(factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OllamaModel:   cfg.Ai.LLMModel,
		GroqAPIKey:    cfg.Keys.Groq,
		GroqBaseURL:   cfg.Ai.GroqBaseURL,
		GroqModel:     cfg.Ai.LLMModel,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository(cfg.Dialogue.SessionIdleTimeout)
	sessions := session.NewManager(sessionRepo)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Dialogue Pipeline
	policy := classify.DefaultPolicy()
	if len(cfg.Dialogue.AllowedTopics) > 0 {
		policy.AllowedTopics = cfg.Dialogue.AllowedTopics
	}
	if len(cfg.Dialogue.DeniedTopics) > 0 {
		policy.DeniedTopics = cfg.Dialogue.DeniedTopics
	}

	piiExtractor := pii.NewExtractor(llmProvider, pipeLogger)
	classifier := classify.NewClassifier(llmProvider, piiExtractor, policy, pipeLogger)
	factExtractor := extract.NewExtractor(llmProvider, pipeLogger)
	replyGenerator := response.NewGenerator(llmProvider, pipeLogger)
	followupGen := followup.NewGenerator(llmProvider, pipeLogger)

	searcher := service.NewKnowledgeSearcher(uowFactory)
	retriever := knowledge.NewRetriever(embeddingProvider, searcher, knowledge.DefaultConfig(), pipeLogger)

	orchestrator := dialogue.NewOrchestrator(
		classifier,
		factExtractor,
		replyGenerator,
		retriever,
		dialogue.Timeouts{
			Classify: cfg.Dialogue.ClassifyTimeout,
			Extract:  cfg.Dialogue.ExtractTimeout,
			Retrieve: cfg.Dialogue.RetrieveTimeout,
			Generate: cfg.Dialogue.GenerateTimeout,
		},
		pipeLogger,
	)

	// 4. Services
	publisherService := service.NewPublisherService(cfg.Keys.EmbedDocsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.EmbedDocsTopic,
		uowFactory,
		embeddingProvider,
	)

	chatService := service.NewChatService(
		uowFactory,
		orchestrator,
		sessions,
		followupGen,
		retriever,
		llmProvider,
		natsPub,
		cfg.Dialogue.StreamChunkDelay,
	)
	threadService := service.NewThreadService(uowFactory, sessions, natsPub)
	knowledgeService := service.NewKnowledgeService(uowFactory, publisherService)

	// 5. WebSocket Protocol & Alerts
	chatSocket := websocket.NewChatSocket(chatService, wsLogger)
	alertHandler := handler.NewAlertHandler(natsSub, wsHub, chatSocket, wsLogger)
	if natsSub != nil {
		go alertHandler.Start()
	}

	// 6. Controllers
	return &Container{
		ChatController:      controller.NewChatController(chatService),
		ThreadController:    controller.NewThreadController(threadService),
		KnowledgeController: controller.NewKnowledgeController(knowledgeService),

		ConsumerService: consumerService,

		AlertHandler: alertHandler,
		WebSocketHub: wsHub,
	}
}

func initPipelineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[PIPELINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
