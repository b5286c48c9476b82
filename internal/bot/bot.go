package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/flor3z/lol-live-tracker/internal/config"
	"github.com/flor3z/lol-live-tracker/internal/ingest"
	"github.com/flor3z/lol-live-tracker/internal/notify"
	"github.com/flor3z/lol-live-tracker/internal/poller"
	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/status"
	"github.com/flor3z/lol-live-tracker/internal/storage"
)

// resolveTimeout bounds lookups made on behalf of a slash command
const resolveTimeout = 10 * time.Second

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	repo     *storage.Repository
	riot     *riot.Client
	pipeline *ingest.Pipeline
	notifier *notify.Discord
	tracker  *poller.Tracker
	pending  *poller.PendingWorker
	status   *status.Server
	commands []*discordgo.ApplicationCommand

	ctx      context.Context
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	stopping bool // set once Stop has begun, guards wg.Add
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := riot.NewClient(cfg.RiotAPIKey, cfg.RiotPlatform, cfg.RiotRegion)
	pipeline := ingest.New(client, repo)
	notifier := notify.NewDiscord(session, repo, riot.NewChampionNames(client))

	b := &Bot{
		config:   cfg,
		session:  session,
		repo:     repo,
		riot:     client,
		pipeline: pipeline,
		notifier: notifier,
		tracker:  poller.NewTracker(client, repo, pipeline, notifier, repo, cfg.RiotPlatform, cfg.PollingInterval),
		pending: poller.NewPendingWorker(repo, pipeline, notifier, poller.PendingOptions{
			Interval:    cfg.PendingInterval,
			MinAge:      cfg.PendingMinAge,
			MaxAttempts: cfg.PendingMaxAttempts,
			MaxAge:      cfg.PendingMaxAge,
		}),
		stopChan: make(chan struct{}),
	}
	if cfg.StatusAddr != "" {
		b.status = status.NewServer(b.tracker, repo, client.Limiter())
	}

	// Register command handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logPatch(ctx)

	if b.status != nil {
		if err := b.status.Start(b.config.StatusAddr); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	b.tracker.Start(ctx)
	b.pending.Start(ctx)

	b.goBackground(func() { b.presenceLoop(ctx) })

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	b.stopBackground()

	b.tracker.Stop()
	b.pending.Stop()
	b.notifier.Wait()

	if b.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.status.Shutdown(ctx); err != nil {
			slog.Warn("Failed to stop status server", "error", err)
		}
	}

	// Close storage
	if b.repo != nil {
		b.repo.Close()
	}

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// goBackground runs fn on the bot's wait group. It reports false and does
// nothing once shutdown has begun.
func (b *Bot) goBackground(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopping {
		return false
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
	return true
}

// stopBackground signals background tasks to stop and waits for them
func (b *Bot) stopBackground() {
	b.mu.Lock()
	if !b.stopping {
		b.stopping = true
		close(b.stopChan)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bot) logPatch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	version, err := b.riot.LatestVersion(ctx)
	if err != nil {
		slog.Warn("Failed to fetch game version", "error", err)
		return
	}
	slog.Info("Current game version", "version", version)
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)

	switch data.Name {
	case "track":
		b.handleTrack(s, i)
	case "untrack":
		b.handleUntrack(s, i)
	case "list":
		b.handleList(s, i)
	case "setchannel":
		b.handleSetChannel(s, i)
	case "resync":
		b.handleResync(s, i)
	case "pending":
		b.handlePending(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}
