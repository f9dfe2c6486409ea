package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-english-tutor/internal/application"
	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain/ports/adapter"
	aiAdapters "telegram-english-tutor/internal/infra/adapters/ai"
	chainAdapters "telegram-english-tutor/internal/infra/adapters/chain"
	speechAdapters "telegram-english-tutor/internal/infra/adapters/speech"
	tele "telegram-english-tutor/internal/infra/adapters/telegram"
	pg "telegram-english-tutor/internal/infra/db/postgres"
	httpapi "telegram-english-tutor/internal/infra/http"
	"telegram-english-tutor/internal/infra/i18n"
	"telegram-english-tutor/internal/infra/logging"
	red "telegram-english-tutor/internal/infra/redis"
	"telegram-english-tutor/internal/infra/sched"
	"telegram-english-tutor/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, noop Telegram transport")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	rateLimiter := red.NewRateLimiter(redisClient, cfg.Limits.RateLimitEvery)
	quizState := red.NewQuizStateRepo(redisClient, cfg.Redis.QuizTTL)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	convoRepo := pg.NewConversationRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	processedRepo := pg.NewProcessedTxRepo(pool)
	refRepo := pg.NewReferralRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- AI model ----
	var mdl adapter.TutorModel
	switch strings.ToLower(cfg.AI.Provider) {
	case "openai":
		mdl, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.OpenAIBase, cfg.AI.Timeout)
	default:
		mdl, err = aiAdapters.NewOllamaAdapter(cfg.AI.OllamaURL, cfg.AI.Model, cfg.AI.Timeout)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.AI.Provider).Msg("ai adapter init failed")
	}
	logger.Info().Str("provider", mdl.Name()).Str("model", cfg.AI.Model).Msg("ai adapter ready")

	// ---- Speech ----
	stt, err := speechAdapters.NewWhisperAdapter(cfg.Speech.WhisperURL, cfg.Speech.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("whisper adapter init failed")
	}
	var tts adapter.Synthesizer
	if cfg.Speech.TTSURL != "" {
		tts, err = speechAdapters.NewCoquiAdapter(cfg.Speech.TTSURL, cfg.Speech.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("tts adapter init failed")
		}
	}

	// ---- Use cases ----
	prompts, err := usecase.NewPromptBuilder(cfg.AI.TokenBudget)
	if err != nil {
		logger.Fatal().Err(err).Msg("prompt builder init failed")
	}

	userUC := usecase.NewUserUseCase(userRepo, logger)
	entitlementUC := usecase.NewEntitlementUseCase(subRepo, cfg.Bot.Whitelist, cfg.Limits.FreeMessages, logger)
	streakUC := usecase.NewStreakUseCase(userRepo, subRepo, cfg.Streak.Milestones, logger)
	referralUC := usecase.NewReferralUseCase(userRepo, refRepo, subRepo, txManager, cfg.Referral, cfg.Bot.Whitelist, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, processedRepo, subRepo, txManager, cfg.Payment, cfg.Chain, logger)
	onboardingUC := usecase.NewOnboardingUseCase(userRepo, quizState, referralUC, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, subRepo)
	convoUC := usecase.NewConversationUseCase(
		userRepo, convoRepo, txManager,
		entitlementUC, streakUC, rateLimiter,
		mdl, stt, prompts, cfg.AI.HistoryTurns, logger,
	)

	// ---- Facade ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		logger.Fatal().Err(err).Msg("translator init failed")
	}
	facade := application.NewBotFacade(
		userUC, convoUC, entitlementUC, streakUC,
		onboardingUC, referralUC, paymentUC, statsUC,
		translator, cfg, logger,
	)

	// ---- Telegram ----
	var notifier adapter.TelegramBot
	if cfg.Runtime.Dev && cfg.Bot.Token == "noop" {
		notifier = tele.NewNoopBotAdapter()
	} else {
		botAdapter, err := tele.NewRealTelegramBotAdapter(cfg, facade, translator, tts, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
		if strings.ToLower(cfg.Bot.Mode) != "polling" && cfg.Bot.Mode != "" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("unsupported bot mode, falling back to polling")
		}
		go func() {
			if err := botAdapter.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		notifier = botAdapter
	}

	// ---- USDT payment reconciler ----
	if cfg.Chain.Wallet != "" && cfg.Chain.APIKey != "" {
		scanner, err := chainAdapters.NewBscScanClient(cfg.Chain.APIKey, cfg.Chain.APIURL, cfg.Chain.USDTContract)
		if err != nil {
			logger.Fatal().Err(err).Msg("bscscan client init failed")
		}
		reconciler := sched.NewChainReconciler(scanner, paymentUC, notifier, translator, cfg.Chain, cfg.Bot.AdminIDs, logger)
		go reconciler.Start(ctx)
	} else {
		logger.Warn().Msg("chain.wallet or chain.api_key unset, USDT payments disabled")
	}

	// ---- Admin HTTP ----
	srv := httpapi.NewServer(cfg.Admin.Port, statsUC, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("admin http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin http shutdown failed")
	}
}
