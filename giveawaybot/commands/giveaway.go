package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"giveaway-bot/giveawaybot/giveaway"
	"giveaway-bot/giveawaybot/handlers"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/paginator"
	"github.com/sahilm/fuzzy"
)

const historyPerPage = 8

var GiveawayCommand = discord.SlashCommandCreate{
	Name:                     "giveaway",
	Description:              "Manage giveaways",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionAdministrator),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setup",
			Description: "Setup a new giveaway",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "end",
			Description: "End a giveaway without winners",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "id",
					Description:  "Giveaway ID to end",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "gend",
			Description: "End a giveaway with random winners",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "id",
					Description:  "Giveaway ID to end",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List all active giveaways",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "history",
			Description: "View giveaway history",
		},
	},
}

type GiveawayHandler struct {
	manager   *giveaway.Manager
	paginator *paginator.Manager
}

func NewGiveawayHandler(manager *giveaway.Manager, pages *paginator.Manager) *GiveawayHandler {
	return &GiveawayHandler{
		manager:   manager,
		paginator: pages,
	}
}

func (h *GiveawayHandler) Register(r handler.Router) {
	r.Route("/giveaway", func(r handler.Router) {
		r.Command("/setup", handlers.WrapWithLogging("giveaway-setup", h.HandleSetup))
		r.Command("/end", handlers.WrapWithLogging("giveaway-end", h.HandleEnd))
		r.Autocomplete("/end", h.HandleIDAutocomplete)
		r.Command("/gend", handlers.WrapWithLogging("giveaway-gend", h.HandleEndWithWinners))
		r.Autocomplete("/gend", h.HandleIDAutocomplete)
		r.Command("/list", handlers.WrapWithLogging("giveaway-list", h.HandleList))
		r.Command("/history", handlers.WrapWithLogging("giveaway-history", h.HandleHistory))
	})

	// Component patterns must start with /
	r.Component("/giveaway/setup-button", handlers.WrapComponentWithLogging("giveaway-setup-button", h.HandleSetupButton))
	r.Modal("/giveaway/setup-modal", handlers.WrapModalWithLogging("giveaway-setup-modal", h.HandleSetupModal))
	r.Component("/giveaway/join/{giveaway_id}", handlers.WrapComponentWithLogging("giveaway-join", h.HandleJoin))
}

func (h *GiveawayHandler) HandleSetup(event *handler.CommandEvent) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: "Click the button below to setup a new giveaway:",
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewPrimaryButton("🎉 Setup Giveaway", "/giveaway/setup-button"),
			),
		},
	})
}

func (h *GiveawayHandler) HandleSetupButton(event *handler.ComponentEvent) error {
	return event.Modal(discord.ModalCreate{
		CustomID: "/giveaway/setup-modal",
		Title:    "Setup New Giveaway",
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewShortTextInput("giveaway_name", "Giveaway Name").
					WithRequired(true).
					WithMaxLength(giveaway.MaxNameLen),
			),
			discord.NewActionRow(
				discord.NewShortTextInput("giveaway_image", "Image URL (Optional)").
					WithRequired(false).
					WithPlaceholder("https://media.discordapp.net/attachments/..."),
			),
			discord.NewActionRow(
				discord.NewShortTextInput("giveaway_endtime", "End Time (Nigeria GMT+1)").
					WithRequired(true).
					WithPlaceholder("2:30PM or 11:45AM"),
			),
			discord.NewActionRow(
				discord.NewParagraphTextInput("giveaway_description", "Description").
					WithRequired(true).
					WithMaxLength(giveaway.MaxDescription),
			),
			discord.NewActionRow(
				discord.NewShortTextInput("giveaway_options", "Winners (1-25) | Tag Everyone (Yes/No)").
					WithRequired(true).
					WithPlaceholder("3 | Yes"),
			),
		},
	})
}

func (h *GiveawayHandler) HandleSetupModal(event *handler.ModalEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	winnerCount, tagEveryone, err := parseOptionsField(event.Data.Text("giveaway_options"))
	if err != nil {
		return ephemeral(event.CreateMessage, err.Error())
	}

	req := giveaway.CreateRequest{
		Name:        event.Data.Text("giveaway_name"),
		Description: event.Data.Text("giveaway_description"),
		ImageURL:    strings.TrimSpace(event.Data.Text("giveaway_image")),
		WinnerCount: winnerCount,
		EndTimeText: event.Data.Text("giveaway_endtime"),
		TagEveryone: tagEveryone,
		CreatedBy:   event.User().ID,
		ChannelID:   event.ChannelID(),
	}
	if guildID := event.GuildID(); guildID != nil {
		req.GuildID = *guildID
	}

	g, err := h.manager.Create(ctx, req)
	if err != nil {
		return ephemeral(event.CreateMessage, noticeFor(err))
	}

	return ephemeral(event.CreateMessage,
		fmt.Sprintf("✅ Giveaway **%s** created! ID: `%s`, ends <t:%d:R>.", g.Name, g.ID, g.EndTime/1000))
}

func (h *GiveawayHandler) HandleJoin(event *handler.ComponentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	giveawayID := event.Vars["giveaway_id"]
	_, err := h.manager.Enroll(ctx, giveawayID, event.User().ID)
	if err != nil {
		if errors.Is(err, giveaway.ErrNotFound) {
			return ephemeral(event.CreateMessage, "This giveaway no longer exists.")
		}
		if errors.Is(err, giveaway.ErrAlreadyEnrolled) {
			return ephemeral(event.CreateMessage, "You are already participating in this giveaway!")
		}
		return ephemeral(event.CreateMessage, noticeFor(err))
	}

	return ephemeral(event.CreateMessage, "You have successfully joined the giveaway! Good luck! 🍀")
}

func (h *GiveawayHandler) HandleEnd(event *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	giveawayID := event.SlashCommandInteractionData().String("id")
	rec, err := h.manager.EndWithoutWinners(ctx, giveawayID, event.User().ID)
	if err != nil {
		return ephemeral(event.CreateMessage, noticeFor(err))
	}

	return event.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("✅ Giveaway \"%s\" has been ended without winners.", rec.Name),
	})
}

func (h *GiveawayHandler) HandleEndWithWinners(event *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	giveawayID := event.SlashCommandInteractionData().String("id")
	rec, err := h.manager.EndWithWinners(ctx, giveawayID, event.User().ID)
	if err != nil {
		return ephemeral(event.CreateMessage, noticeFor(err))
	}

	plural := ""
	if len(rec.Winners) > 1 {
		plural = "s"
	}
	return event.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("✅ Giveaway \"%s\" has been ended with %d winner%s!", rec.Name, len(rec.Winners), plural),
	})
}

func (h *GiveawayHandler) HandleList(event *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	giveaways, err := h.manager.List(ctx)
	if err != nil {
		return ephemeral(event.CreateMessage, noticeFor(err))
	}
	if len(giveaways) == 0 {
		return event.CreateMessage(discord.MessageCreate{
			Content: "No active giveaways found.",
		})
	}

	var description strings.Builder
	for _, g := range giveaways {
		description.WriteString(fmt.Sprintf("**%s**\n", g.Name))
		description.WriteString(fmt.Sprintf("ID: `%s`\n", g.ID))
		description.WriteString(fmt.Sprintf("Participants: %d\n", len(g.Participants)))
		description.WriteString(fmt.Sprintf("Ends: <t:%d:R>\n\n", g.EndTime/1000))
	}

	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{
			discord.NewEmbedBuilder().
				SetTitle("🎉 Active Giveaways").
				SetDescription(description.String()).
				SetColor(0x00FF00).
				SetTimestamp(time.Now()).
				Build(),
		},
	})
}

func (h *GiveawayHandler) HandleHistory(event *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := h.manager.History(ctx)
	if err != nil {
		return ephemeral(event.CreateMessage, noticeFor(err))
	}
	if len(records) == 0 {
		return event.CreateMessage(discord.MessageCreate{
			Content: "No giveaway history found.",
		})
	}

	// Newest first.
	ordered := make([]*giveaway.HistoryRecord, len(records))
	for i, rec := range records {
		ordered[len(records)-1-i] = rec
	}
	totalPages := int(math.Ceil(float64(len(ordered)) / float64(historyPerPage)))

	return h.paginator.Create(event.Respond, paginator.Pages{
		ID:      event.ID().String(),
		Creator: event.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start := page * historyPerPage
			end := min(start+historyPerPage, len(ordered))

			var description strings.Builder
			for _, rec := range ordered[start:end] {
				description.WriteString(fmt.Sprintf("**%s**\n", rec.Name))
				description.WriteString(fmt.Sprintf("ID: `%s`\n", rec.ID))
				if len(rec.Winners) > 0 {
					winners := make([]string, len(rec.Winners))
					for i, w := range rec.Winners {
						winners[i] = fmt.Sprintf("<@%s>", w)
					}
					description.WriteString(fmt.Sprintf("Winners: %s\n", strings.Join(winners, ", ")))
				} else {
					description.WriteString("Winners: None\n")
				}
				description.WriteString(fmt.Sprintf("Ended: <t:%d:D>\n\n", rec.EndedAt.Unix()))
			}

			embed.
				SetTitle("📜 Giveaway History").
				SetDescription(description.String()).
				SetColor(0x5865F2).
				SetFooter(fmt.Sprintf("Page %d/%d • Total Giveaways: %d", page+1, totalPages, len(ordered)), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}

// HandleIDAutocomplete suggests active giveaways for the id option of
// the end commands, fuzzy-matched by name.
func (h *GiveawayHandler) HandleIDAutocomplete(event *handler.AutocompleteEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	giveaways, err := h.manager.List(ctx)
	if err != nil {
		return event.AutocompleteResult([]discord.AutocompleteChoice{})
	}

	query := strings.TrimSpace(event.Data.String("id"))

	indices := make([]int, 0, len(giveaways))
	if query == "" {
		for i := range giveaways {
			indices = append(indices, i)
		}
	} else {
		names := make([]string, len(giveaways))
		for i, g := range giveaways {
			names[i] = fmt.Sprintf("%s %s", g.Name, g.ID)
		}
		for _, match := range fuzzy.Find(query, names) {
			indices = append(indices, match.Index)
		}
	}

	choices := make([]discord.AutocompleteChoice, 0, min(len(indices), 25))
	for _, i := range indices {
		if len(choices) == 25 {
			break
		}
		g := giveaways[i]
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  choiceLabel(g.Name, g.ID),
			Value: g.ID,
		})
	}
	return event.AutocompleteResult(choices)
}

func choiceLabel(name, id string) string {
	label := fmt.Sprintf("%s (%s)", name, id)
	if len(label) > 100 {
		label = label[:97] + "..."
	}
	return label
}

func parseOptionsField(raw string) (winnerCount int, tagEveryone bool, err error) {
	parts := strings.SplitN(raw, "|", 2)
	winnerCount, convErr := strconv.Atoi(strings.TrimSpace(parts[0]))
	if convErr != nil {
		return 0, false, fmt.Errorf("Winners must be a number between %d and %d!", giveaway.MinWinners, giveaway.MaxWinners)
	}
	if len(parts) > 1 {
		tagEveryone = strings.EqualFold(strings.TrimSpace(parts[1]), "yes")
	}
	return winnerCount, tagEveryone, nil
}

func noticeFor(err error) string {
	var validationErr *giveaway.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Reason
	case errors.Is(err, giveaway.ErrNotFound):
		return "Giveaway not found."
	case errors.Is(err, giveaway.ErrNoParticipants):
		return "Cannot end giveaway with winners - no participants!"
	case errors.Is(err, giveaway.ErrAlreadyEnrolled):
		return "You are already participating in this giveaway!"
	default:
		return "Something went wrong. Please try again later."
	}
}

func ephemeral(create func(discord.MessageCreate, ...rest.RequestOpt) error, content string) error {
	return create(discord.MessageCreate{
		Content: content,
		Flags:   discord.MessageFlagEphemeral,
	})
}
