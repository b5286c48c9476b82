package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/flor3z/lol-live-tracker/internal/game"
	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
)

const (
	colorLive    = 0x3498DB
	colorNeutral = 0x95A5A6
	colorWin     = 0x2ECC71
	colorLoss    = 0xE74C3C
	colorFailure = 0xE67E22
)

// maxEmbeds is Discord's limit per message
const maxEmbeds = 10

func liveEmbed(g LiveGame, champions map[int]string) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		lines = append(lines, livePlayerLine(p, champions))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Live: " + g.Mode.Display,
		Description: strings.Join(lines, "\n"),
		Color:       colorLive,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Game ID: %s", g.GameID)},
	}
	if !g.StartedAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Started",
			Value:  fmt.Sprintf("<t:%d:R>", g.StartedAt.Unix()),
			Inline: true,
		})
		embed.Timestamp = g.StartedAt.Format(time.RFC3339)
	}
	return embed
}

func livePlayerLine(p LivePlayer, champions map[int]string) string {
	switch {
	case p.ChampionID == 0:
		return p.RiotID
	case champions[p.ChampionID] != "":
		return fmt.Sprintf("%s (%s)", p.RiotID, champions[p.ChampionID])
	default:
		return fmt.Sprintf("%s (champion %d)", p.RiotID, p.ChampionID)
	}
}

// resultEmbeds builds one embed per tracked player found in the match
func resultEmbeds(match *storage.MatchRecord, participants []storage.ParticipantRecord, tracked []*storage.Player) []*discordgo.MessageEmbed {
	names := make(map[string]string, len(tracked))
	for _, p := range tracked {
		names[p.PUUID] = p.RiotID()
	}

	var embeds []*discordgo.MessageEmbed
	for i := range participants {
		p := &participants[i]
		name, ok := names[p.PUUID]
		if !ok {
			continue
		}
		embeds = append(embeds, matchEmbed(name, match, p))
		if len(embeds) == maxEmbeds {
			break
		}
	}
	return embeds
}

func matchEmbed(playerName string, match *storage.MatchRecord, p *storage.ParticipantRecord) *discordgo.MessageEmbed {
	mode := game.Classify(match.GameMode, match.GameType)

	color := colorLoss
	resultText := "Defeat"
	switch {
	case mode.Category == game.CategoryArena && p.Placement > 0:
		resultText = fmt.Sprintf("Placed #%d", p.Placement)
		if p.Placement <= 4 {
			color = colorWin
		}
	case match.GameDuration < remakeThreshold:
		resultText = "Remake"
		color = colorNeutral
	case p.Win:
		resultText = "Victory"
		color = colorWin
	}

	cs := p.CS()
	csPerMin := 0.0
	if match.GameDuration > 0 {
		csPerMin = float64(cs) / (float64(match.GameDuration) / 60.0)
	}

	queueName := riot.GetQueueName(match.QueueID)

	embed := &discordgo.MessageEmbed{
		Title: resultText,
		Color: color,
		Author: &discordgo.MessageEmbedAuthor{
			Name: playerName,
		},
		Description: fmt.Sprintf("**%s** | %s", p.ChampionName, queueName),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "KDA",
				Value:  fmt.Sprintf("%d / %d / %d (%.2f)", p.Kills, p.Deaths, p.Assists, p.KDA()),
				Inline: true,
			},
			{
				Name:   "CS",
				Value:  fmt.Sprintf("%d (%.1f/min)", cs, csPerMin),
				Inline: true,
			},
			{
				Name:   "Damage",
				Value:  humanize.Comma(int64(p.TotalDamageDealtToChampions)),
				Inline: true,
			},
			{
				Name:   "Gold",
				Value:  humanize.Comma(int64(p.GoldEarned)),
				Inline: true,
			},
			{
				Name:   "Vision",
				Value:  fmt.Sprintf("%d", p.VisionScore),
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  formatDuration(match.GameDuration),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Match ID: %s", match.MatchID),
		},
	}
	if match.GameEnd > 0 {
		embed.Timestamp = time.UnixMilli(match.GameEnd).Format(time.RFC3339)
	}
	if p.PentaKills > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Pentakills",
			Value:  fmt.Sprintf("%d", p.PentaKills),
			Inline: true,
		})
	}

	return embed
}

// games shorter than this are remakes
const remakeThreshold = 5 * 60

func formatDuration(seconds int64) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
