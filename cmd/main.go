package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"chat-sync/engine"
	"chat-sync/identity"
	"chat-sync/internal"
	"chat-sync/moderation"
	"chat-sync/observability"
	"chat-sync/runtime"
	"chat-sync/search"
	"chat-sync/storage"
	"chat-sync/store"
)

// Exit codes for the reconciliation harness.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// The harness reads real-time envelopes as JSON lines on stdin, reconciles
// them into the session store and renders the resulting state, persisting a
// snapshot on shutdown. It is the same wiring a host UI would do.
func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat-sync error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := newLogger(config.LogLevel)

	// 2. Open the persistence layer.
	opts := badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return exitRuntime, fmt.Errorf("opening badger: %w", err)
	}
	defer db.Close()
	provider := storage.NewBadgerProvider(db, log)

	// 3. Assemble the store and engine.
	st := store.New(log, store.WithTypingTTL(config.TypingTTL))
	metrics := observability.NewMetrics(log)
	engineOpts := []engine.Option{
		engine.WithMetrics(metrics),
		engine.WithSnapshotKey(config.SnapshotKey),
	}

	if words := config.Words(); len(words) > 0 {
		censoredChar, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return exitConfig, err
		}
		moderator, err := moderation.NewModerator(words, censoredChar)
		if err != nil {
			return exitConfig, fmt.Errorf("building moderator: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithModerator(moderator))
	}

	if config.BlugeFilepath != "" {
		writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("opening search index: %w", err)
		}
		defer func() {
			log.Info("Closing search index...")
			_ = writer.Close()
		}()
		engineOpts = append(engineOpts, engine.WithSearchIndex(search.NewIndex(writer, log)))
	}

	eng := engine.New(st, log, engineOpts...)

	if config.IdentityToken != "" {
		userID, err := identity.UserID(config.IdentityToken)
		if err != nil {
			return exitConfig, fmt.Errorf("identity token: %w", err)
		}
		eng.SetCurrentUser(userID)
		log.Info("Current user resolved", "user", userID)
	}

	if err := eng.Hydrate(provider); err != nil {
		return exitRuntime, fmt.Errorf("hydrating sessions: %w", err)
	}

	// 4. Background loops: pruner plus the stdin feed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		pruner := runtime.NewPruner(st, config.PruneInterval, metrics, log)
		_ = pruner.Run(ctx)
	}()

	frames := make(chan []byte, 64)
	go func() {
		defer close(frames)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			frames <- []byte(line)
		}
	}()

	unsubscribe := st.Subscribe(func(snap store.Snapshot) { render(snap) })
	defer unsubscribe()

	feed := runtime.NewFeed(eng, frames, log)
	if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
		return exitRuntime, err
	}

	// 5. Persist the final state before exit.
	if err := eng.Persist(provider); err != nil {
		return exitRuntime, fmt.Errorf("persisting sessions: %w", err)
	}
	stats := metrics.Stats()
	log.Info("Shutdown complete",
		"events_applied", stats.EventsApplied,
		"events_dropped", stats.EventsDropped,
		"typing_pruned", stats.TypingPruned)
	return exitOK, nil
}

func render(snap store.Snapshot) {
	color.Cyan.Printf("\n— state v%d —\n", snap.Version)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Conversation", "Kind", "Members", "Messages", "Typing"})
	for _, sess := range snap.Ordered() {
		table.Append([]string{
			sess.ID,
			string(sess.Kind),
			fmt.Sprintf("%d", len(sess.Participants)),
			fmt.Sprintf("%d", len(sess.Messages)),
			fmt.Sprintf("%d", len(sess.Typing)),
		})
	}
	table.Render()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
