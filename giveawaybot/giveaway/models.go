package giveaway

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Document keys in the backing store.
const (
	ActiveKey  = "data/giveaways/active.json"
	HistoryKey = "data/giveaways/history.json"
)

// Giveaway is one open giveaway. It lives in the active document until
// exactly one closure moves it, as a HistoryRecord, into history.
type Giveaway struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ImageURL     string         `json:"imageUrl,omitempty"`
	WinnerCount  int            `json:"winners"`
	EndTime      int64          `json:"endTime"` // epoch milliseconds
	Participants []snowflake.ID `json:"participants"`
	CreatedBy    snowflake.ID   `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	GuildID      snowflake.ID   `json:"guildId"`
	ChannelID    snowflake.ID   `json:"channelId"`
	MessageID    snowflake.ID   `json:"messageId,omitempty"`
}

func (g *Giveaway) EndsAt() time.Time {
	return time.UnixMilli(g.EndTime)
}

func (g *Giveaway) HasParticipant(userID snowflake.ID) bool {
	for _, p := range g.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Outcome records how a giveaway ended. The wire name is "status" to
// stay compatible with the persisted history layout.
type Outcome string

const (
	OutcomeEndedNoWinners      Outcome = "ended_no_winners"
	OutcomeEndedWithWinners    Outcome = "ended_with_winners"
	OutcomeEndedNoParticipants Outcome = "ended_no_participants"
	OutcomeAutoEnded           Outcome = "auto_ended"
)

// HistoryRecord is the immutable snapshot of a closed giveaway. EndedBy
// is zero for automatic closures.
type HistoryRecord struct {
	Giveaway

	EndedAt time.Time      `json:"endedAt"`
	EndedBy snowflake.ID   `json:"endedBy,omitempty"`
	Winners []snowflake.ID `json:"winners"`
	Outcome Outcome        `json:"status"`
}

type activeDocument struct {
	Giveaways []*Giveaway `json:"giveaways"`
}

type historyDocument struct {
	History []*HistoryRecord `json:"history"`
}
