package giveaway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

const (
	colorActive  = 0x00FF00
	colorEnded   = 0xFF0000
	colorWinners = 0xFFD700
)

// Announcer renders lifecycle state into the channel. The engine treats
// everything but AnnounceCreated as best effort: the store is the
// source of truth, a vanished or uneditable announcement never blocks a
// transition.
type Announcer interface {
	// AnnounceCreated posts the announcement with the join button and
	// returns the message id, which becomes part of the record.
	AnnounceCreated(ctx context.Context, g *Giveaway, tagEveryone bool) (snowflake.ID, error)
	// AnnounceUpdated refreshes the participant count on the announcement.
	AnnounceUpdated(ctx context.Context, g *Giveaway) error
	// AnnounceClosed replaces the announcement with the outcome embed,
	// clears the join button and congratulates any winners.
	AnnounceClosed(ctx context.Context, rec *HistoryRecord) error
}

type DiscordAnnouncer struct {
	mu     sync.RWMutex
	client bot.Client
}

func NewDiscordAnnouncer() *DiscordAnnouncer {
	return &DiscordAnnouncer{}
}

func (a *DiscordAnnouncer) SetClient(client bot.Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = client
}

func (a *DiscordAnnouncer) rest() (bot.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.client == nil {
		return nil, fmt.Errorf("announcer has no client")
	}
	return a.client, nil
}

func (a *DiscordAnnouncer) AnnounceCreated(ctx context.Context, g *Giveaway, tagEveryone bool) (snowflake.ID, error) {
	client, err := a.rest()
	if err != nil {
		return 0, err
	}

	create := discord.MessageCreate{
		Embeds: []discord.Embed{activeEmbed(g)},
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewSuccessButton("🎉 Participate", fmt.Sprintf("/giveaway/join/%s", g.ID)),
			),
		},
	}
	if tagEveryone {
		create.Content = "@everyone"
	}

	msg, err := client.Rest().CreateMessage(g.ChannelID, create)
	if err != nil {
		return 0, fmt.Errorf("failed to post giveaway announcement: %w", err)
	}
	return msg.ID, nil
}

func (a *DiscordAnnouncer) AnnounceUpdated(ctx context.Context, g *Giveaway) error {
	client, err := a.rest()
	if err != nil {
		return err
	}

	_, err = client.Rest().UpdateMessage(g.ChannelID, g.MessageID, discord.MessageUpdate{
		Embeds: &[]discord.Embed{activeEmbed(g)},
	})
	if err != nil {
		return fmt.Errorf("failed to update giveaway announcement: %w", err)
	}
	return nil
}

func (a *DiscordAnnouncer) AnnounceClosed(ctx context.Context, rec *HistoryRecord) error {
	client, err := a.rest()
	if err != nil {
		return err
	}

	_, err = client.Rest().UpdateMessage(rec.ChannelID, rec.MessageID, discord.MessageUpdate{
		Embeds:     &[]discord.Embed{closedEmbed(rec)},
		Components: &[]discord.ContainerComponent{},
	})
	if err != nil {
		return fmt.Errorf("failed to update ended giveaway announcement: %w", err)
	}

	if len(rec.Winners) > 0 {
		_, err = client.Rest().CreateMessage(rec.ChannelID, discord.MessageCreate{
			Content: fmt.Sprintf("🎉 Congratulations %s! You won **%s**!", mentionList(rec.Winners, " "), rec.Name),
		})
		if err != nil {
			// The announcement itself is already final; a lost congrats
			// message is only worth a log line.
			slog.Error("Failed to send winner congratulations",
				slog.String("giveaway_id", rec.ID),
				slog.Any("error", err))
		}
	}
	return nil
}

func activeEmbed(g *Giveaway) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🎉 %s", g.Name)).
		SetDescription(g.Description).
		SetColor(colorActive).
		AddField("Winners", fmt.Sprintf("%d", g.WinnerCount), true).
		AddField("Ends At", fmt.Sprintf("<t:%d:F>", g.EndTime/1000), true).
		AddField("Participants", fmt.Sprintf("%d", len(g.Participants)), true).
		SetFooter(fmt.Sprintf("Giveaway ID: %s", g.ID), "").
		SetTimestamp(g.CreatedAt)

	if g.ImageURL != "" {
		builder.SetImage(g.ImageURL)
	}
	return builder.Build()
}

func closedEmbed(rec *HistoryRecord) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetDescription(rec.Description).
		SetFooter(fmt.Sprintf("Giveaway ID: %s", rec.ID), "").
		SetTimestamp(rec.EndedAt)

	switch rec.Outcome {
	case OutcomeEndedWithWinners, OutcomeAutoEnded:
		if len(rec.Winners) > 0 {
			title := "🏆 Winner"
			if len(rec.Winners) > 1 {
				title = "🏆 Winners"
			}
			builder.SetTitle(fmt.Sprintf("🎉 %s (ENDED)", rec.Name)).
				SetColor(colorWinners).
				AddField(title, mentionList(rec.Winners, "\n"), false).
				AddField("Total Participants", fmt.Sprintf("%d", len(rec.Participants)), true)
			break
		}
		fallthrough
	case OutcomeEndedNoParticipants:
		builder.SetTitle(fmt.Sprintf("😔 %s (ENDED)", rec.Name)).
			SetColor(colorEnded).
			AddField("Status", "No participants - No winners", false)
	default: // OutcomeEndedNoWinners
		builder.SetTitle(fmt.Sprintf("🔚 %s (ENDED)", rec.Name)).
			SetColor(colorEnded).
			AddField("Status", "Ended by moderator without winners", false).
			AddField("Total Participants", fmt.Sprintf("%d", len(rec.Participants)), true)
	}

	if rec.ImageURL != "" {
		builder.SetImage(rec.ImageURL)
	}
	return builder.Build()
}

func mentionList(ids []snowflake.ID, sep string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = fmt.Sprintf("<@%s>", id)
	}
	return strings.Join(mentions, sep)
}
