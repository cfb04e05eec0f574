// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Command voicegraphd is the voicegraph daemon entrypoint: it loads
// configuration, wires up the provider adapters for one deployment, and
// serves the HTTP and gRPC signalling surfaces behind one shared listener.
// Each negotiated peer gets its own fully wired pipeline graph.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	speech "cloud.google.com/go/speech/apiv1"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/anthropics/anthropic-sdk-go"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mcpclient "github.com/mark3labs/mcp-go/client"
	openaisdk "github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"google.golang.org/genai"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rapidaai/voicegraph/internal/gate"
	"github.com/rapidaai/voicegraph/internal/hardware"
	"github.com/rapidaai/voicegraph/internal/llm"
	"github.com/rapidaai/voicegraph/internal/memory"
	"github.com/rapidaai/voicegraph/internal/observer"
	"github.com/rapidaai/voicegraph/internal/pipeline"
	"github.com/rapidaai/voicegraph/internal/queue"
	"github.com/rapidaai/voicegraph/internal/session"
	"github.com/rapidaai/voicegraph/internal/stage"
	"github.com/rapidaai/voicegraph/internal/stt"
	"github.com/rapidaai/voicegraph/internal/tool"
	"github.com/rapidaai/voicegraph/internal/transport/grpcsignal"
	"github.com/rapidaai/voicegraph/internal/transport/grpcsignal/pb"
	"github.com/rapidaai/voicegraph/internal/transport/signaling"
	"github.com/rapidaai/voicegraph/internal/transport/webrtc"
	"github.com/rapidaai/voicegraph/internal/tts"
	"github.com/rapidaai/voicegraph/internal/vad"
	"github.com/rapidaai/voicegraph/internal/vision"
	"github.com/rapidaai/voicegraph/pkg/config"
	"github.com/rapidaai/voicegraph/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, FilePath: cfg.LogFile})
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infow("voicegraphd: shutdown signal received")
		cancel()
	}()

	d, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("voicegraphd: init failed", "error", err)
		os.Exit(1)
	}
	if err := d.run(ctx); err != nil {
		logger.Errorw("voicegraphd: exited with error", "error", err)
		os.Exit(1)
	}
}

// daemon holds every long-lived provider handle constructed once at process
// start and reused across every session's pipeline.
type daemon struct {
	cfg    *config.AppConfig
	logger logging.Logger

	cohere      *cohereclient.Client
	memoryStore memory.Store
	hardwareFn  func() (hardware.Adapter, error)
	mcp         *mcpclient.Client
	vision      vision.Adapter

	signalingServer *signaling.Server
	grpcSignal      *grpcsignal.Service
}

func newDaemon(ctx context.Context, cfg *config.AppConfig, logger logging.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, logger: logger}

	if cfg.Gate.Enabled {
		d.cohere = cohereclient.NewClient(cohereclient.WithToken(cfg.Gate.APIKey))
	}

	memStore, err := buildMemoryStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}
	d.memoryStore = memStore

	if cfg.Robot.MCPServerURL != "" {
		mcp := mcpclient.NewSSEMCPClient(cfg.Robot.MCPServerURL)
		if err := mcp.Start(ctx); err != nil {
			return nil, fmt.Errorf("mcp: start: %w", err)
		}
		d.mcp = mcp
	}

	if cfg.Robot.Enabled {
		d.hardwareFn = func() (hardware.Adapter, error) {
			return hardware.Dial(ctx, cfg.Robot.Address)
		}
	}

	if cfg.Vision.Enabled {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Vision.APIKey, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return nil, fmt.Errorf("vision: genai client: %w", err)
		}
		d.vision = vision.NewGenAIAdapter(client, cfg.Vision.Model)
	}

	d.signalingServer = signaling.NewServer(logger, d.newSession, maxSessionsFor(cfg), cfg.JWTSecret)
	d.signalingServer.WithBackendStatus(cfg.GRPCSignalPort > 0, cfg.Memory.Backend, gateBackendName(cfg))
	d.grpcSignal = grpcsignal.NewService(logger, d.newSession)

	return d, nil
}

func maxSessionsFor(cfg *config.AppConfig) int {
	// No explicit cap configured today; 0 disables the limit in Server.
	return 0
}

func gateBackendName(cfg *config.AppConfig) string {
	if cfg.Gate.Enabled {
		return "cohere"
	}
	return "none"
}

func buildMemoryStore(ctx context.Context, cfg *config.AppConfig) (memory.Store, error) {
	if !cfg.Memory.Enabled {
		return memory.NoopStore{}, nil
	}
	switch cfg.Memory.Backend {
	case "gorm":
		db, err := gorm.Open(postgres.Open(cfg.Memory.DSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("gorm: open: %w", err)
		}
		return memory.NewRelationalStore(db)
	case "opensearch":
		client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{cfg.Memory.OpenSearchURL}})
		if err != nil {
			return nil, fmt.Errorf("opensearch: new client: %w", err)
		}
		embedder := openaisdk.NewClient(openaioption.WithAPIKey(cfg.LLM.APIKey))
		embed := func(ctx context.Context, text string) ([]float32, error) {
			resp, err := embedder.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
				Model: openaisdk.EmbeddingModelTextEmbedding3Small,
				Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
			})
			if err != nil {
				return nil, fmt.Errorf("opensearch: embed: %w", err)
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("opensearch: embed: empty response")
			}
			vec := make([]float32, len(resp.Data[0].Embedding))
			for i, v := range resp.Data[0].Embedding {
				vec[i] = float32(v)
			}
			return vec, nil
		}
		return memory.NewOpenSearchStore(client, "voicegraph-memory", cfg.Memory.OpenSearchAlpha, embed), nil
	default:
		return memory.NoopStore{}, nil
	}
}

// run starts the HTTP+gRPC multiplexed listener and blocks until ctx is
// cancelled.
func (d *daemon) run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := grpcsignal.Mux(l)

	grpcServer := grpc.NewServer(grpcsignal.ServerOptions(d.logger)...)
	grpcServer.RegisterService(&pb.ServiceDesc, d.grpcSignal)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())
	d.signalingServer.Register(engine)
	engine.Any("/grpcweb/*path", gin.WrapH(grpcsignal.WrapGRPCWeb(grpcServer)))

	httpServer := &http.Server{Handler: engine}

	go func() {
		if err := grpcServer.Serve(mux.GRPCListener()); err != nil {
			d.logger.Errorw("grpc signalling server stopped", "error", err)
		}
	}()
	go func() {
		if err := httpServer.Serve(mux.HTTP); err != nil && err != http.ErrServerClosed {
			d.logger.Errorw("http signalling server stopped", "error", err)
		}
	}()
	go func() {
		if err := mux.Serve(); err != nil {
			d.logger.Debugw("cmux accept loop stopped", "error", err)
		}
	}()

	d.logger.Infow("voicegraphd: listening", "addr", addr)

	<-ctx.Done()
	d.logger.Infow("voicegraphd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return nil
}

// newSession assembles one session's full pipeline graph and returns the
// webrtc.Peer the signalling layer negotiates SDP against. Both the HTTP
// and gRPC signalling paths call this so every peer gets an identical
// pipeline regardless of transport.
func (d *daemon) newSession(sessionID string) (*webrtc.Peer, error) {
	sess := session.New(context.Background(), sessionID)
	logger := d.logger.With("session", sessionID)

	audioIn := queue.NewAudioEdge()
	audioOut := queue.NewAudioEdge()
	// clientEdge carries every frame meant for the data channel that isn't
	// synthesized audio: transcriptions, system notes, tts state, and any
	// stage's Error frame. Lossy so a client reading slowly never backs up
	// a stage's fan-out.
	clientEdge := queue.NewLossyEdge(32, nil)

	peer, err := webrtc.New(logger, webrtcConfig(d.cfg), sessionID, audioIn, stage.NewFanIn(audioOut, clientEdge))
	if err != nil {
		return nil, fmt.Errorf("webrtc peer: %w", err)
	}

	graph := pipeline.New(sess, pipeline.WithLogger(logger))

	publishers := []observer.SnapshotPublisher{peer}
	if cache := buildRedisSnapshotCache(d.cfg.Observer.RedisAddr, sessionID); cache != nil {
		publishers = append(publishers, cache)
	}
	observer.NewSnapshotter(graph.Metrics, observer.NewMultiPublisher(publishers...), time.Duration(d.cfg.Observer.SnapshotMs)*time.Millisecond)

	vadDetector, err := vad.NewDetector(d.cfg.VAD.ModelPath, vad.Config{HangoverMs: float32(d.cfg.VAD.SilenceMs), SampleRate: webrtc.InternalRate})
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("vad: %w", err)
	}
	aggregator := vad.NewAggregator(vad.AggregatorConfig{
		StabiliseMs:    time.Duration(d.cfg.Turn.StabiliseMs) * time.Millisecond,
		HardDeadlineMs: time.Duration(d.cfg.Turn.HardDeadlineMs) * time.Millisecond,
	})

	sttAdapter, err := d.buildSTTAdapter()
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("stt adapter: %w", err)
	}
	sttStage := stt.NewStage(sttAdapter)

	vadControlEdge := queue.NewControlEdge()
	sttOutEdge := queue.NewControlEdge()
	aggregatorOutEdge := queue.NewControlEdge()
	llmOutEdge := queue.NewControlEdge()
	ttsOutEdge := audioOut

	// AudioInput fans out to both VAD and STT independently — neither stage
	// passes audio through to the other, so every frame is copied onto one
	// edge per stage.
	vadAudioIn := queue.NewAudioEdge()
	sttAudioIn := queue.NewAudioEdge()
	go func() {
		for {
			f, err := audioIn.Recv(sess.Context())
			if err != nil {
				return
			}
			if vadAudioIn.Send(sess.Context(), f) != nil || sttAudioIn.Send(sess.Context(), f) != nil {
				return
			}
		}
	}()
	graph.Add(vadDetector, vadAudioIn, vadControlEdge, clientEdge)
	graph.Add(sttStage, sttAudioIn, sttOutEdge, clientEdge)

	llmInEdge := aggregatorOutEdge
	if d.cfg.Gate.Enabled && d.cohere != nil {
		gateStage := gate.NewStage(d.cohere, gate.Config{
			Timeout:  time.Duration(d.cfg.Gate.BudgetMs) * time.Millisecond,
			FailMode: gate.FailMode(d.cfg.Gate.FailMode),
		})
		gateOutEdge := queue.NewControlEdge()
		graph.Add(gateStage, aggregatorOutEdge, gateOutEdge, clientEdge)
		llmInEdge = gateOutEdge
	}

	dispatcher := &tool.Dispatcher{MCP: d.mcp, Vision: d.vision}
	if d.hardwareFn != nil {
		hw, err := d.hardwareFn()
		if err != nil {
			logger.Warnw("hardware adapter unavailable, tool calls will error", "error", err)
		} else {
			dispatcher.Hardware = hw
		}
	}

	llmAdapter, err := d.buildLLMAdapter()
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("llm adapter: %w", err)
	}
	ctxMgr, err := llm.NewContextManager(d.cfg.LLM.ContextWindowTokens)
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("llm context manager: %w", err)
	}
	llmStage := llm.NewStage(llmAdapter, ctxMgr, d.memoryStore, dispatcher, toolSchemas(d.cfg), sess, llm.Config{
		SystemPrompt:      defaultSystemPrompt,
		MemoryRecallLimit: d.cfg.Memory.K,
	})

	ttsAdapter, err := d.buildTTSAdapter()
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("tts adapter: %w", err)
	}
	ttsStage := tts.NewStage(ttsAdapter, tts.DefaultConfig())

	// aggregator merges STT finals with VAD speech boundaries via its own
	// timer-driven Run loop rather than stage.Runner.
	combinedEdge := queue.NewControlEdge()
	go relay(sess.Context(), vadControlEdge, combinedEdge)
	go relay(sess.Context(), sttOutEdge, combinedEdge)

	go func() {
		if err := aggregator.Run(sess.Context(), combinedEdge, aggregatorOutEdge); err != nil {
			logger.Warnw("aggregator stopped", "error", err)
		}
	}()

	graph.Add(llmStage, llmInEdge, llmOutEdge, clientEdge)
	graph.Add(ttsStage, llmOutEdge, ttsOutEdge)

	go func() {
		if err := graph.Run(sess.Context()); err != nil {
			logger.Warnw("pipeline graph exited", "error", err)
		}
	}()
	go func() {
		if err := peer.Run(); err != nil {
			logger.Warnw("webrtc peer writer stopped", "error", err)
		}
	}()

	peer.OnICEFailed(func() {
		sess.End(fmt.Errorf("webrtc: ice failed"))
	})

	return peer, nil
}

// relay forwards every frame from src to dst until src closes or ctx ends.
// Used to merge the VAD and STT edges onto the single edge the turn
// aggregator's Run loop reads from.
func relay(ctx context.Context, src, dst *queue.Edge) {
	for {
		f, err := src.Recv(ctx)
		if err != nil {
			return
		}
		if err := dst.Send(ctx, f); err != nil {
			return
		}
	}
}

const defaultSystemPrompt = "You are a helpful voice assistant. Keep responses brief and conversational."

func toolSchemas(cfg *config.AppConfig) []llm.ToolSchema {
	if !cfg.Robot.Enabled {
		return nil
	}
	return []llm.ToolSchema{
		{Name: tool.ToolExecuteMovement, Description: "Perform one or more physical gestures.", Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"gestures": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}}},
		}},
		{Name: tool.ToolSetEmotion, Description: "Set the robot's displayed emotion.", Parameters: map[string]interface{}{
			"type": "object", "properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
		}},
		{Name: tool.ToolSetEyeState, Description: "Set the robot's eye display state.", Parameters: map[string]interface{}{
			"type": "object", "properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
		}},
		{Name: tool.ToolCaptureCameraView, Description: "Capture and describe what the robot's camera currently sees.", Parameters: map[string]interface{}{
			"type": "object", "properties": map[string]interface{}{},
		}},
		{Name: tool.ToolGetRobotStatus, Description: "Get the robot's current battery, emotion, and eye state.", Parameters: map[string]interface{}{
			"type": "object", "properties": map[string]interface{}{},
		}},
	}
}

func webrtcConfig(cfg *config.AppConfig) webrtc.Config {
	c := webrtc.DefaultConfig()
	if cfg.Transport.ICEFailureGraceMs > 0 {
		c.FailedGrace = time.Duration(cfg.Transport.ICEFailureGraceMs) * time.Millisecond
	}
	c.ForwardPartialsDuringTTS = cfg.Transport.ForwardPartialsDuringTTS
	return c
}

func (d *daemon) buildSTTAdapter() (stt.Adapter, error) {
	switch d.cfg.STT.Provider {
	case "deepgram":
		return stt.NewDeepgramAdapter(d.cfg.STT.APIKey, d.cfg.STT.Language), nil
	case "azure":
		return stt.NewAzureAdapter(d.cfg.STT.APIKey, d.cfg.STT.Language), nil
	case "google":
		client, err := speech.NewClient(context.Background(), option.WithAPIKey(d.cfg.STT.APIKey))
		if err != nil {
			return nil, fmt.Errorf("google speech client: %w", err)
		}
		return stt.NewGoogleAdapter(client), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", d.cfg.STT.Provider)
	}
}

func (d *daemon) buildLLMAdapter() (llm.Adapter, error) {
	switch d.cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIAdapter(d.cfg.LLM.APIKey, d.cfg.LLM.Model), nil
	case "anthropic":
		return llm.NewAnthropicAdapter(d.cfg.LLM.APIKey, anthropic.Model(d.cfg.LLM.Model)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", d.cfg.LLM.Provider)
	}
}

func (d *daemon) buildTTSAdapter() (tts.Adapter, error) {
	switch d.cfg.TTS.Provider {
	case "google":
		client, err := texttospeech.NewClient(context.Background(), option.WithAPIKey(d.cfg.TTS.APIKey))
		if err != nil {
			return nil, fmt.Errorf("google texttospeech client: %w", err)
		}
		return tts.NewGoogleAdapter(client, d.cfg.TTS.Voice), nil
	case "aws":
		awsSess, err := awssession.NewSession()
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		return tts.NewPollyAdapter(polly.New(awsSess), d.cfg.TTS.Voice), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", d.cfg.TTS.Provider)
	}
}

func buildRedisSnapshotCache(addr, sessionID string) *observer.RedisSnapshotCache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return observer.NewRedisSnapshotCache(client, sessionID)
}
