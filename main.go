package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	waiterx "github.com/tanpawarit/chative-waiter/agent/agents/waiter"
	llmx "github.com/tanpawarit/chative-waiter/agent/llm"
	"github.com/tanpawarit/chative-waiter/agent/order"
	backendx "github.com/tanpawarit/chative-waiter/agent/order/backend"
	promptx "github.com/tanpawarit/chative-waiter/agent/prompt"
	serverx "github.com/tanpawarit/chative-waiter/agent/server"
	statex "github.com/tanpawarit/chative-waiter/agent/state"
	toolx "github.com/tanpawarit/chative-waiter/agent/tool"
	configx "github.com/tanpawarit/chative-waiter/pkg/config"
	_ "github.com/tanpawarit/chative-waiter/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/chative-waiter/pkg/openrouter"
	tracingx "github.com/tanpawarit/chative-waiter/pkg/tracing"
)

const (
	modeREPL = "repl"
	modeHTTP = "http"

	storeMemory  = "memory"
	storeUpstash = "upstash"
)

type AppConfig struct {
	Mode              string `split_words:"true" default:"repl"`
	HTTPAddr          string `envconfig:"HTTP_ADDR" default:":8080"`
	ConversationStore string `split_words:"true" default:"memory"`
	MaxToolRounds     int    `split_words:"true" default:"8"`
	MaxHistory        int    `split_words:"true" default:"50"`
	PromptFile        string `split_words:"true"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("waiter stopped")
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[AppConfig]("APP")

	tracingCfg := configx.MustNew[tracingx.Config]("OTEL")
	shutdownTracing, err := tracingx.Init(ctx, *tracingCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	ledgerCfg := configx.MustNew[backendx.Config]("LEDGER")
	ledger, err := backendx.OpenLedger(ctx, *ledgerCfg)
	if err != nil {
		return fmt.Errorf("open order ledger: %w", err)
	}
	defer ledger.Close()

	addressCfg := configx.MustNew[toolx.AddressConfig]("ADDRESS")
	addresses, err := toolx.NewAddressResolver(*addressCfg)
	if err != nil {
		return fmt.Errorf("address resolver: %w", err)
	}

	gateway, err := toolx.NewGateway(ledger, addresses)
	if err != nil {
		return err
	}

	store, err := newConversationStore(appCfg.ConversationStore)
	if err != nil {
		return err
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		return err
	}
	openRouterCfg := llmCfg.OpenRouter()
	if llmCfg.VerifyModel {
		if err := openrouterx.VerifyModel(ctx, openRouterCfg); err != nil {
			return err
		}
	}
	chatModel, err := openRouterCfg.New(ctx)
	if err != nil {
		return err
	}

	prompts, err := promptx.LoadPromptSetFrom(appCfg.PromptFile)
	if err != nil {
		return fmt.Errorf("load prompt: %w", err)
	}

	waiter, err := waiterx.New(ctx, store, chatModel, gateway, prompts.Waiter, waiterx.Config{
		MaxToolRounds: appCfg.MaxToolRounds,
		MaxHistory:    appCfg.MaxHistory,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("mode", appCfg.Mode).
		Str("backend", ledgerCfg.Backend).
		Str("model", openRouterCfg.Model).
		Int("unit_price", ledger.UnitPrice()).
		Msg("waiter ready")

	switch strings.ToLower(strings.TrimSpace(appCfg.Mode)) {
	case "", modeREPL:
		return runREPL(ctx, waiter, os.Stdin, os.Stdout)
	case modeHTTP:
		srv, err := serverx.New(waiter, ledger)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx, appCfg.HTTPAddr)
	default:
		return fmt.Errorf("unknown mode %q", appCfg.Mode)
	}
}

func newConversationStore(kind string) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", storeMemory:
		return statex.NewMemoryStore(), nil
	case storeUpstash:
		upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
		return statex.NewUpstashRedisStore(*upstashCfg, statex.WithTTL(upstashCfg.TTL))
	default:
		return nil, fmt.Errorf("unknown conversation store %q", kind)
	}
}

// runREPL reads one message per line until EOF, "quit" or cancellation.
// A failed turn never ends the loop.
func runREPL(ctx context.Context, waiter serverx.MessageHandler, in io.Reader, out io.Writer) error {
	sessionID := uuid.NewString()
	fmt.Fprintln(out, "READY")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") {
			return nil
		}

		reply, err := waiter.HandleMessage(ctx, sessionID, line)
		if err != nil {
			logTurnError(sessionID, err)
			fmt.Fprintln(out, "Invalid Command")
			continue
		}
		fmt.Fprintln(out, reply)
	}
	return scanner.Err()
}

func logTurnError(sessionID string, err error) {
	var serr *order.StorageError
	if errors.As(err, &serr) {
		log.Error().Err(serr.Err).Str("session_id", sessionID).Str("op", serr.Op).Msg("order storage failed")
		return
	}
	log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
}
