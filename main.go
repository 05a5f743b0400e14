package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/factories"
	"github.com/nori-cloud/story/handlers"
	"github.com/nori-cloud/story/profiler"
	"github.com/nori-cloud/story/speech"
)

func main() {
	var addrFlag string
	flag.StringVar(&addrFlag, "addr", "", "HTTP listen address (overrides settings and STORY_ADDR)")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	logger := core.GetLogger()
	settings, apiKeys := loadSettingsFromEnv()

	addr := settings.Addr
	if env := os.Getenv("STORY_ADDR"); env != "" {
		addr = env
	}
	if addrFlag != "" {
		addr = addrFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llmService, err := factories.BuildLLMService(settings.LLM, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build LLM service")
	}
	ttsService, err := factories.BuildTTSService(settings.TTS, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build TTS service")
	}
	sttService, err := factories.BuildSTTService(settings.STT, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build STT service")
	}

	var enhancer *speech.Enhancer
	if settings.EnhanceTextEnabled() {
		enhancer = speech.NewEnhancer(llmService)
	}
	speechService := speech.New(ttsService, settings.TTS.Kind(), sttService, enhancer, logger)

	store := profiler.NewSessionStore(
		func(config profiler.Config) *profiler.Profiler {
			if config.MaxHistoryMessages == 0 {
				config.MaxHistoryMessages = settings.Session.MaxHistoryMessages
			}
			return profiler.New(config, llmService, nil, logger)
		},
		profiler.StoreConfig{
			IdleTimeout:   settings.Session.IdleTimeout(),
			SweepInterval: settings.Session.SweepInterval(),
		},
		logger,
	)
	store.StartSweep(ctx)

	server := handlers.NewServer(addr, logger)
	profilerHandler := handlers.NewProfilerHandler(store, logger)
	profilerHandler.SetDefaultURLs(splitURLList(os.Getenv("STORY_PROFILE_URLS")))
	server.Handle("/api/profiler/chat", profilerHandler)
	server.Handle("/api/stt", handlers.NewSTTHandler(speechService, logger))
	server.Handle("/api/tts", handlers.NewTTSHandler(speechService, logger))

	if settings.InternalRoutesEnabled() {
		handlers.NewInternalSpeechHandler(settings, apiKeys, logger).Register(server)
		logger.Info("internal speech routes enabled")
	}

	if err := server.Start(ctx); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to start HTTP server")
	}
	logger.With(map[string]any{
		"tts": string(settings.TTS.Kind()),
		"stt": string(settings.STT.Kind()),
	}).Info("story server started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.With(map[string]any{"error": err}).Error("shutdown error")
	}
}

// loadSettingsFromEnv loads SettingsConfig from SETTINGS_JSON_B64 or a
// settings file, and API keys from env vars.
func loadSettingsFromEnv() (factories.SettingsConfig, factories.APIKeys) {
	var settings factories.SettingsConfig
	var err error

	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, decErr := base64.StdEncoding.DecodeString(b64)
		if decErr != nil {
			core.GetLogger().With(map[string]any{"error": decErr}).Error("failed to decode SETTINGS_JSON_B64")
			settings = factories.DefaultSettingsConfig()
		} else {
			settings, err = factories.SettingsConfigFromJSON(data)
			if err != nil {
				core.GetLogger().With(map[string]any{"error": err}).Error("failed to parse SETTINGS_JSON_B64")
				settings = factories.DefaultSettingsConfig()
			} else {
				core.GetLogger().Info("loaded settings from SETTINGS_JSON_B64")
			}
		}
	} else {
		settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
		settings, err = factories.SettingsConfigFromFile(settingsPath)
		if err != nil {
			core.GetLogger().With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
			settings = factories.DefaultSettingsConfig()
		}
	}

	if env := os.Getenv("STORY_ENV"); env != "" {
		settings.Environment = env
	}

	apiKeys := factories.APIKeys{
		DeepSeek:   getEnv("DEEPSEEK_API_KEY", ""),
		ElevenLabs: getEnv("STORY_ELEVENLABS_API_KEY", ""),
		Neuphonic:  getEnv("NEUPHONIC_API_KEY", ""),
		Whisper:    getEnv("WHISPER_API_KEY", ""),
	}
	settings.InjectAPIKeys(apiKeys)
	settings.InjectProviderURLs(os.Getenv("KOKORO_URL"), os.Getenv("WHISPER_URL"))

	return settings, apiKeys
}

// splitURLList parses a comma-separated URL list, dropping blank entries.
func splitURLList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
