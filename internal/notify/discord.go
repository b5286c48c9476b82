package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/flor3z/lol-live-tracker/internal/game"
	"github.com/flor3z/lol-live-tracker/internal/storage"
)

// EndedMessageTTL is how long the "game ended" message stays up.
const EndedMessageTTL = 30 * time.Second

// ErrNoChannel is returned when a guild has no notification channel set.
var ErrNoChannel = errors.New("no notification channel configured")

// MessageRef identifies a posted message. The zero value means none.
type MessageRef struct {
	ChannelID string `json:"channelId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// IsZero reports whether the ref points at no message.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" || r.MessageID == ""
}

// LiveGame is what gets announced when tracked players enter a game.
type LiveGame struct {
	GameID    string
	MatchID   string
	Mode      game.Mode
	GuildID   string
	Players   []LivePlayer // tracked players in the game
	StartedAt time.Time
}

// LivePlayer is one tracked player in a live game.
type LivePlayer struct {
	RiotID     string
	ChampionID int
}

// ChampionLookup resolves champion ids to display names
type ChampionLookup interface {
	ChampionName(ctx context.Context, id int) string
}

// Messenger is the part of a discordgo session used to post notifications
type Messenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbeds(channelID string, embeds []*discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Store is what the notifier reads match data and settings from
type Store interface {
	GetGuildSettings(ctx context.Context, guildID string) (*storage.GuildSettings, error)
	GetMatch(ctx context.Context, matchID string) (*storage.MatchRecord, error)
	GetParticipants(ctx context.Context, matchID string) ([]storage.ParticipantRecord, error)
	ListPlayersByGuild(ctx context.Context, guildID string) ([]*storage.Player, error)
}

// Discord posts game lifecycle messages to guild channels
type Discord struct {
	session   Messenger
	store     Store
	champions ChampionLookup // may be nil
	endedTTL  time.Duration

	deletes sync.WaitGroup
}

// NewDiscord creates a Discord notifier. champions may be nil, in which case
// live games show champion ids.
func NewDiscord(session Messenger, store Store, champions ChampionLookup) *Discord {
	return &Discord{
		session:   session,
		store:     store,
		champions: champions,
		endedTTL:  EndedMessageTTL,
	}
}

// PostLive announces a live game in the guild's channel
func (d *Discord) PostLive(ctx context.Context, g LiveGame) (MessageRef, error) {
	channelID, err := d.channelFor(ctx, MessageRef{}, g.GuildID)
	if err != nil {
		return MessageRef{}, err
	}

	msg, err := d.session.ChannelMessageSendEmbed(channelID, liveEmbed(g, d.championNames(ctx, g.Players)))
	if err != nil {
		return MessageRef{}, fmt.Errorf("failed to send live message: %w", err)
	}

	slog.Info("Posted live game", "gameID", g.GameID, "guildID", g.GuildID, "players", len(g.Players))
	return MessageRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

func (d *Discord) championNames(ctx context.Context, players []LivePlayer) map[int]string {
	names := make(map[int]string, len(players))
	if d.champions == nil {
		return names
	}
	for _, p := range players {
		if p.ChampionID == 0 {
			continue
		}
		if name := d.champions.ChampionName(ctx, p.ChampionID); name != "" {
			names[p.ChampionID] = name
		}
	}
	return names
}

// UpdateToEnded marks a live message as ended and removes it after a delay
func (d *Discord) UpdateToEnded(ctx context.Context, ref MessageRef) error {
	if ref.IsZero() {
		return nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Game ended",
		Description: "Fetching results...",
		Color:       colorNeutral,
	}
	if _, err := d.session.ChannelMessageEditEmbed(ref.ChannelID, ref.MessageID, embed); err != nil {
		return fmt.Errorf("failed to edit live message: %w", err)
	}

	d.deletes.Add(1)
	time.AfterFunc(d.endedTTL, func() {
		defer d.deletes.Done()
		if err := d.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID); err != nil {
			slog.Warn("Failed to delete ended message", "messageID", ref.MessageID, "error", err)
		}
	})
	return nil
}

// PostFinalResult posts the stored result of a match for the guild's tracked
// players. The message goes to ref's channel if set.
func (d *Discord) PostFinalResult(ctx context.Context, ref MessageRef, guildID, matchID string) error {
	match, err := d.store.GetMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if match == nil {
		return fmt.Errorf("match %s is not stored", matchID)
	}

	participants, err := d.store.GetParticipants(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load participants of %s: %w", matchID, err)
	}
	players, err := d.store.ListPlayersByGuild(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load players of guild %s: %w", guildID, err)
	}

	embeds := resultEmbeds(match, participants, players)
	if len(embeds) == 0 {
		slog.Warn("No tracked players in match", "matchID", matchID, "guildID", guildID)
		return nil
	}

	channelID, err := d.channelFor(ctx, ref, guildID)
	if err != nil {
		return err
	}
	if _, err := d.session.ChannelMessageSendEmbeds(channelID, embeds); err != nil {
		return fmt.Errorf("failed to send result: %w", err)
	}

	slog.Info("Posted match result", "matchID", matchID, "guildID", guildID, "players", len(embeds))
	return nil
}

// PostFailure reports a match whose result could not be fetched
func (d *Discord) PostFailure(ctx context.Context, ref MessageRef, guildID, matchID string, attempts int) error {
	channelID, err := d.channelFor(ctx, ref, guildID)
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Match result unavailable",
		Description: fmt.Sprintf("Riot did not return results for this game after %d attempts.", attempts),
		Color:       colorFailure,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Match ID: %s", matchID)},
	}
	if _, err := d.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("failed to send failure notice: %w", err)
	}
	return nil
}

// Wait blocks until scheduled message deletions have run.
func (d *Discord) Wait() {
	d.deletes.Wait()
}

func (d *Discord) channelFor(ctx context.Context, ref MessageRef, guildID string) (string, error) {
	if ref.ChannelID != "" {
		return ref.ChannelID, nil
	}
	settings, err := d.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("failed to load guild settings: %w", err)
	}
	if settings == nil || settings.NotificationChannelID == "" {
		return "", fmt.Errorf("guild %s: %w", guildID, ErrNoChannel)
	}
	return settings.NotificationChannelID, nil
}
