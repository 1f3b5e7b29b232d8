package commands

import (
	"github.com/disgoorg/disgo/discord"
)

// Commands holds every application command the bot syncs to Discord.
var Commands = []discord.ApplicationCommandCreate{
	GiveawayCommand,
}
