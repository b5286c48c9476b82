package ingest

import (
	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
)

// Convert maps a match detail payload to the stored rows
func Convert(m *riot.Match) (*storage.MatchRecord, []storage.ParticipantRecord) {
	info := m.Info
	record := &storage.MatchRecord{
		MatchID:         m.Metadata.MatchID,
		DataVersion:     m.Metadata.DataVersion,
		GameVersion:     info.GameVersion,
		GameMode:        info.GameMode,
		GameType:        info.GameType,
		QueueID:         info.QueueID,
		PlatformID:      info.PlatformID,
		GameDuration:    info.GameDuration,
		GameCreation:    info.GameCreation,
		GameEnd:         info.GameEndTimestamp,
		EndOfGameResult: info.EndOfGameResult,
	}

	participants := make([]storage.ParticipantRecord, 0, len(info.Participants))
	for _, p := range info.Participants {
		participants = append(participants, storage.ParticipantRecord{
			MatchID:                     record.MatchID,
			PUUID:                       p.PUUID,
			GameName:                    p.RiotIdGameName,
			TagLine:                     p.RiotIdTagline,
			ChampionName:                p.ChampionName,
			ChampionID:                  p.ChampionID,
			ChampLevel:                  p.ChampLevel,
			TeamID:                      p.TeamID,
			TeamPosition:                p.TeamPosition,
			Win:                         p.Win,
			Placement:                   p.Placement,
			Kills:                       p.Kills,
			Deaths:                      p.Deaths,
			Assists:                     p.Assists,
			LargestMultiKill:            p.LargestMultiKill,
			PentaKills:                  p.PentaKills,
			TotalDamageDealt:            p.TotalDamageDealt,
			TotalDamageDealtToChampions: p.TotalDamageDealtToChampions,
			TotalDamageTaken:            p.TotalDamageTaken,
			GoldEarned:                  p.GoldEarned,
			GoldSpent:                   p.GoldSpent,
			TotalMinionsKilled:          p.TotalMinionsKilled,
			NeutralMinionsKilled:        p.NeutralMinionsKilled,
			VisionScore:                 p.VisionScore,
			WardsPlaced:                 p.WardsPlaced,
			WardsKilled:                 p.WardsKilled,
			VisionWardsBought:           p.VisionWardsBought,
			TimePlayed:                  p.TimePlayed,
			TotalTimeSpentDead:          p.TotalTimeSpentDead,
		})
	}
	return record, participants
}
