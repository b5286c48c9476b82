package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/flor3z/lol-live-tracker/internal/game"
	"github.com/flor3z/lol-live-tracker/internal/poller"
	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
)

var (
	manageServer = int64(discordgo.PermissionManageServer)
	guildOnly    = false
)

func riotIDOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "riot_id",
		Description: description,
		Required:    true,
	}
}

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "track",
			Description:  "Start announcing a player's live games",
			DMPermission: &guildOnly,
			Options:      []*discordgo.ApplicationCommandOption{riotIDOption("Riot ID, e.g. Faker#KR1")},
		},
		{
			Name:         "untrack",
			Description:  "Stop announcing a player's live games",
			DMPermission: &guildOnly,
			Options:      []*discordgo.ApplicationCommandOption{riotIDOption("Riot ID, e.g. Faker#KR1")},
		},
		{
			Name:         "list",
			Description:  "List all tracked players in this server",
			DMPermission: &guildOnly,
		},
		{
			Name:                     "setchannel",
			Description:              "Set the channel for match notifications",
			DMPermission:             &guildOnly,
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "The channel to send notifications to",
					Required:    true,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
		},
		{
			Name:                     "resync",
			Description:              "Fetch every missing match of all tracked players",
			DMPermission:             &guildOnly,
			DefaultMemberPermissions: &manageServer,
		},
		{
			Name:         "pending",
			Description:  "Show matches waiting for results from Riot",
			DMPermission: &guildOnly,
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			"", // Empty string = global command
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// handleTrack handles the /track command
func (b *Bot) handleTrack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	input := i.ApplicationCommandData().Options[0].StringValue()

	gameName, tagLine, err := riot.ParseRiotID(input)
	if err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Invalid Riot ID: %s", err.Error()))
		return
	}

	// Respond immediately to avoid timeout
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	account, err := b.riot.GetAccountByRiotID(ctx, gameName, tagLine)
	if err != nil {
		if riot.IsNotFound(err) {
			b.editResponse(s, i, fmt.Sprintf("Could not find player `%s`. Please check the ID and try again.", input))
			return
		}
		slog.Error("Failed to look up player", "riotID", input, "error", err)
		b.editResponse(s, i, "Failed to look up player. Please try again.")
		return
	}

	existing, err := b.repo.GetPlayer(ctx, account.PUUID)
	if err != nil {
		slog.Error("Failed to load player", "puuid", account.PUUID, "error", err)
		b.editResponse(s, i, "Failed to track player. Please try again.")
		return
	}
	if existing != nil && existing.Active && existing.GuildID == i.GuildID {
		b.editResponse(s, i, fmt.Sprintf("`%s` is already tracked in this server.", account.RiotID()))
		return
	}

	player := &storage.Player{
		PUUID:    account.PUUID,
		GameName: account.GameName,
		TagLine:  account.TagLine,
		GuildID:  i.GuildID,
	}
	if err := b.repo.AddPlayer(ctx, player); err != nil {
		slog.Error("Failed to save player", "error", err)
		b.editResponse(s, i, "Failed to track player. Please try again.")
		return
	}

	slog.Info("Tracking player", "player", player.RiotID(), "guildID", i.GuildID)
	b.editResponse(s, i, fmt.Sprintf("Now tracking `%s`. Live games will be announced here.", player.RiotID()))
}

// handleUntrack handles the /untrack command
func (b *Bot) handleUntrack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	input := i.ApplicationCommandData().Options[0].StringValue()

	gameName, tagLine, err := riot.ParseRiotID(input)
	if err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Invalid Riot ID: %s", err.Error()))
		return
	}

	ctx := context.Background()
	player, err := b.repo.GetPlayerByRiotID(ctx, gameName, tagLine)
	if err != nil {
		slog.Error("Failed to load player", "riotID", input, "error", err)
		respondWithMessage(s, i, "Failed to untrack player. Please try again.")
		return
	}
	if player == nil || player.GuildID != i.GuildID || !player.Active {
		respondWithMessage(s, i, fmt.Sprintf("`%s` is not tracked in this server.", input))
		return
	}

	if err := b.repo.SetActive(ctx, player.PUUID, false); err != nil {
		slog.Error("Failed to deactivate player", "error", err)
		respondWithMessage(s, i, "Failed to untrack player. Please try again.")
		return
	}

	respondWithMessage(s, i, fmt.Sprintf("Stopped tracking `%s`.", player.RiotID()))
}

// handleList handles the /list command
func (b *Bot) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	players, err := b.repo.ListPlayersByGuild(context.Background(), i.GuildID)
	if err != nil {
		slog.Error("Failed to get players", "error", err)
		respondWithMessage(s, i, "Failed to retrieve player list.")
		return
	}

	respondWithMessage(s, i, formatPlayerList(players, b.tracker.Sessions()))
}

// handleSetChannel handles the /setchannel command
func (b *Bot) handleSetChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channel := i.ApplicationCommandData().Options[0].ChannelValue(s)

	settings := &storage.GuildSettings{
		GuildID:               i.GuildID,
		NotificationChannelID: channel.ID,
	}

	if err := b.repo.UpsertGuildSettings(context.Background(), settings); err != nil {
		slog.Error("Failed to save guild settings", "error", err)
		respondWithMessage(s, i, "Failed to set notification channel. Please try again.")
		return
	}

	respondWithMessage(s, i, fmt.Sprintf("Match notifications will be sent to <#%s>", channel.ID))
}

// handleResync handles the /resync command
func (b *Bot) handleResync(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	started := b.goBackground(func() {
		start := time.Now()
		n, err := b.pipeline.SyncAll(b.ctx)
		elapsed := time.Since(start).Round(time.Second)
		if err != nil {
			slog.Warn("Resync finished with errors", "stored", n, "error", err)
			b.editResponse(s, i, fmt.Sprintf("Resync stored %d new matches in %s, some players failed. Check the logs.", n, elapsed))
			return
		}
		b.editResponse(s, i, fmt.Sprintf("Resync stored %d new matches in %s.", n, elapsed))
	})
	if !started {
		b.editResponse(s, i, "The bot is shutting down, try again later.")
	}
}

// handlePending handles the /pending command
func (b *Bot) handlePending(s *discordgo.Session, i *discordgo.InteractionCreate) {
	entries, err := b.repo.ListPending(context.Background())
	if err != nil {
		slog.Error("Failed to list pending matches", "error", err)
		respondWithMessage(s, i, "Failed to retrieve pending matches.")
		return
	}

	respondWithMessage(s, i, formatPending(entries, b.config.PendingMaxAttempts, time.Now()))
}

func formatPlayerList(players []*storage.Player, sessions []poller.SessionInfo) string {
	if len(players) == 0 {
		return "No players are tracked in this server.\nUse `/track` to add one!"
	}

	live := make(map[string]poller.SessionInfo)
	for _, s := range sessions {
		for _, name := range s.Players {
			live[name] = s
		}
	}

	var sb strings.Builder
	sb.WriteString("**Tracked Players:**\n\n")
	n := 0
	for _, p := range players {
		if !p.Active {
			continue
		}
		n++
		sb.WriteString(fmt.Sprintf("%d. `%s`", n, p.RiotID()))
		if s, ok := live[p.RiotID()]; ok {
			sb.WriteString(fmt.Sprintf(" (in game: %s)", game.Classify(s.Mode, "").Display))
		}
		sb.WriteString("\n")
	}
	if n == 0 {
		return "No players are tracked in this server.\nUse `/track` to add one!"
	}
	return sb.String()
}

func formatPending(entries []storage.PendingMatch, maxAttempts int, now time.Time) string {
	if len(entries) == 0 {
		return "No matches are waiting for results."
	}

	var sb strings.Builder
	sb.WriteString("**Waiting for results:**\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("`%s` %s, attempt %d/%d, queued %s ago\n",
			e.MatchID, e.GameMode, e.Attempts, maxAttempts, now.Sub(e.CreatedAt).Round(time.Minute)))
	}
	return sb.String()
}

// Helper functions

func respondWithMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}
