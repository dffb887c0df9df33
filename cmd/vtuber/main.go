// Command vtuber runs the AI VTuber: it queues chat and voice messages,
// generates spoken replies, animates the avatar and plays the audio locally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	orchestration "github.com/Vioneyy/AI-VTuber-demo/core"
	"github.com/Vioneyy/AI-VTuber-demo/core/admincmd"
	"github.com/Vioneyy/AI-VTuber-demo/core/avatar/vts"
	"github.com/Vioneyy/AI-VTuber-demo/core/chathost"
	"github.com/Vioneyy/AI-VTuber-demo/core/events"
	otosink "github.com/Vioneyy/AI-VTuber-demo/core/playback/oto"
	openaigen "github.com/Vioneyy/AI-VTuber-demo/core/replygen/openai"
	"github.com/Vioneyy/AI-VTuber-demo/core/safety"
	sttdeepgram "github.com/Vioneyy/AI-VTuber-demo/core/speechtotext/deepgram"
	ttsdeepgram "github.com/Vioneyy/AI-VTuber-demo/core/texttospeech/deepgram"
	"github.com/Vioneyy/AI-VTuber-demo/internal/console"
)

type config struct {
	QueueSize       int           `env:"VTUBER_QUEUE_SIZE" envDefault:"50"`
	AdminIDs        []string      `env:"VTUBER_ADMIN_IDS" envDefault:"admin"`
	BackoffInterval time.Duration `env:"VTUBER_BACKOFF_INTERVAL" envDefault:"3s"`
	MaxItemWait     time.Duration `env:"VTUBER_MAX_ITEM_WAIT" envDefault:"0"`

	ChatAddr   string `env:"VTUBER_CHAT_ADDR" envDefault:":8765"`
	VTSURL     string `env:"VTUBER_VTS_URL" envDefault:"ws://localhost:8001"`
	VTSToken   string `env:"VTUBER_VTS_TOKEN"`
	Model      string `env:"VTUBER_OPENAI_MODEL"`
	Voice      string `env:"VTUBER_VOICE" envDefault:"aura-asteria-en"`
	SampleRate int    `env:"VTUBER_SAMPLE_RATE" envDefault:"48000"`

	BlockedTerms     []string      `env:"VTUBER_BLOCKED_TERMS"`
	BlockedPatterns  []string      `env:"VTUBER_BLOCKED_PATTERNS"`
	ApprovalPatterns []string      `env:"VTUBER_APPROVAL_PATTERNS"`
	ApprovalTimeout  time.Duration `env:"VTUBER_APPROVAL_TIMEOUT" envDefault:"60s"`

	DisableAvatar  bool `env:"VTUBER_DISABLE_AVATAR"`
	DisableSpeech  bool `env:"VTUBER_DISABLE_SPEECH"`
	DisableVoice   bool `env:"VTUBER_DISABLE_VOICE"`
	DisableConsole bool `env:"VTUBER_DISABLE_CONSOLE"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatal("Could not parse configuration", "error", err)
	}

	coreCfg := orchestration.DefaultConfig()
	coreCfg.MaxQueueSize = cfg.QueueSize
	coreCfg.AdminIDs = cfg.AdminIDs
	coreCfg.BackoffInterval = cfg.BackoffInterval
	coreCfg.MaxItemWait = cfg.MaxItemWait

	blockedPatterns, err := compilePatterns(cfg.BlockedPatterns)
	if err != nil {
		log.Fatal("Invalid blocked pattern", "error", err)
	}
	approvalPatterns, err := compilePatterns(cfg.ApprovalPatterns)
	if err != nil {
		log.Fatal("Invalid approval pattern", "error", err)
	}
	filter := safety.NewFilter(
		safety.WithBlockedTerms(cfg.BlockedTerms...),
		safety.WithBlockedPatterns(blockedPatterns...),
		safety.WithApprovalPatterns(approvalPatterns...),
		safety.WithApprovalTimeout(cfg.ApprovalTimeout),
		safety.WithApprovalNotifier(func(p safety.PendingApproval) {
			log.Warn("Reply held for approval", "id", p.ID, "text", p.Text)
		}),
	)

	opts := []orchestration.OrchestratorOption{
		orchestration.WithReplyGenerator(newGenerator(cfg)),
		orchestration.WithSafetyFilter(filter),
	}

	if !cfg.DisableSpeech {
		synthesizer, err := ttsdeepgram.NewSynthesizer(
			ttsdeepgram.WithVoice(ttsdeepgram.Voice(cfg.Voice)),
			ttsdeepgram.WithSampleRate(cfg.SampleRate),
		)
		if err != nil {
			log.Fatal("Could not configure speech synthesis", "error", err)
		}
		opts = append(opts,
			orchestration.WithSpeechSynthesizer(synthesizer),
			orchestration.WithPlaybackSink(otosink.NewSink(otosink.WithSampleRate(cfg.SampleRate))),
		)
	}

	if !cfg.DisableAvatar {
		avatarOpts := []vts.Option{vts.WithURL(cfg.VTSURL)}
		if cfg.VTSToken != "" {
			avatarOpts = append(avatarOpts, vts.WithAuthToken(cfg.VTSToken))
		}
		opts = append(opts, orchestration.WithAvatarController(vts.NewController(avatarOpts...)))
	}

	orchestrator, err := orchestration.NewOrchestrator(coreCfg, opts...)
	if err != nil {
		log.Fatal("Invalid orchestrator configuration", "error", err)
	}

	adminHandler := admincmd.NewHandler(orchestrator, admincmd.WithApprovals(filter))

	hostOpts := []chathost.Option{
		chathost.WithCommandHandler(adminHandler, cfg.AdminIDs...),
	}
	if !cfg.DisableVoice {
		transcriber, err := sttdeepgram.NewTranscriber(sttdeepgram.WithSampleRate(cfg.SampleRate))
		if err != nil {
			log.Warn("Voice input disabled", "error", err)
		} else {
			hostOpts = append(hostOpts, chathost.WithVoiceTranscriber(transcriber, cfg.AdminIDs[0]))
		}
	}
	host := chathost.NewServer(cfg.ChatAddr, orchestrator, hostOpts...)

	if err := orchestrator.Configure(
		orchestration.WithAdapter(host),
		orchestration.WithFeedbackSender(host),
	); err != nil {
		log.Fatal("Could not attach chat host", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventStream := make(chan events.Event, 256)
	runOpts := []orchestration.RunOption{
		orchestration.WithEventCallback(func(event events.Event) {
			select {
			case eventStream <- event:
			default:
			}
		}),
	}

	if err := orchestrator.Run(ctx, runOpts...); err != nil {
		log.Fatal("Could not start orchestrator", "error", err)
	}
	log.Info("Orchestrator running", "chat_addr", cfg.ChatAddr)

	if cfg.DisableConsole {
		<-ctx.Done()
	} else {
		runConsole(ctx, orchestrator, adminHandler, cfg, eventStream)
		stop()
	}

	if err := orchestrator.Shutdown(); err != nil {
		log.Error("Shutdown finished with errors", "error", err)
		os.Exit(1)
	}
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func newGenerator(cfg config) *openaigen.Generator {
	return openaigen.NewGenerator(func(o *openaigen.Options) {
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
	})
}

// runConsole drives the operator dashboard until it quits or ctx is
// cancelled. Console input that is not a command is queued as an operator
// text message.
func runConsole(
	ctx context.Context,
	orchestrator *orchestration.Orchestrator,
	adminHandler *admincmd.Handler,
	cfg config,
	eventStream <-chan events.Event,
) {
	execute := func(input string) (string, error) {
		if adminHandler.IsCommand(input) {
			return adminHandler.Execute(input)
		}
		item, err := orchestrator.Submit(orchestration.Submission{
			Content:  input,
			Source:   orchestration.SourceText,
			UserID:   cfg.AdminIDs[0],
			UserName: "operator",
		})
		if err != nil {
			return "", err
		}
		return "queued as " + item.ID, nil
	}

	program := tea.NewProgram(
		console.New(orchestrator.Status, execute, eventStream),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		log.Error("Console exited with an error", "error", err)
	}
}
