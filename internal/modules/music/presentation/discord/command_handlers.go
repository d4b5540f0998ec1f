package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/music/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

const (
	playTimeout  = 30 * time.Second
	leaveTimeout = 15 * time.Second
)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	playback     *usecases.PlaybackService
	voiceChannel *usecases.VoiceChannelService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	playback *usecases.PlaybackService,
	voiceChannel *usecases.VoiceChannelService,
) *CommandHandlers {
	return &CommandHandlers{
		playback:     playback,
		voiceChannel: voiceChannel,
	}
}

// Handlers returns the command name to handler mapping.
func (h *CommandHandlers) Handlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":        h.HandlePlay,
		"search":      h.HandleSearch,
		"stop":        h.HandleStop,
		"leave":       h.HandleLeave,
		"disconnect":  h.HandleDisconnect,
		"voicestatus": h.HandleVoiceStatus,
	}
}

// interactionIDs holds the IDs every command needs.
type interactionIDs struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	userName  string
	channelID snowflake.ID
}

func parseInteraction(i *discordgo.InteractionCreate) (interactionIDs, string) {
	var ids interactionIDs

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return ids, "This command can only be used in a server"
	}
	ids.guildID = guildID

	if i.Member == nil || i.Member.User == nil {
		return ids, "Invalid user"
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return ids, "Invalid user"
	}
	ids.userID = userID
	ids.userName = memberName(i.Member)

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return ids, "Invalid channel"
	}
	ids.channelID = channelID

	return ids, ""
}

func memberName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	req, err := h.playback.PreparePlay(usecases.PlayInput{
		GuildID:       ids.guildID,
		UserID:        ids.userID,
		UserName:      ids.userName,
		TextChannelID: ids.channelID,
		Query:         query,
	})
	if err != nil {
		return h.respondPreconditionError(r, "play", err)
	}

	if err := deferResponse(r); err != nil {
		return err
	}

	searching := embed("", fmt.Sprintf("Searching for `%s`", query), colorInfo)
	if domain.IsYouTubeURL(query) {
		searching.Footer = &discordgo.MessageEmbedFooter{
			Text: "YouTube links may not work reliably. Spotify links or search terms are more dependable.",
		}
	}
	if err := editEmbed(r, searching); err != nil {
		slog.Warn("failed to edit play reply", "guild", ids.guildID, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	if err := h.playback.Play(ctx, req); err != nil {
		slog.Error("failed to play", "guild", ids.guildID, "query", query, "error", err)
		return editEmbed(r, playFailureEmbed(query, err))
	}

	return nil
}

func playFailureEmbed(query string, err error) *discordgo.MessageEmbed {
	failure := describePlayFailure(err)

	e := embed("Error", failure.title, colorError)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "What you searched:", Value: fmt.Sprintf("`%s`", truncate(query, maxErrorDetail))},
		{Name: "Suggestions:", Value: bulletList(failure.suggestions)},
	}
	return e
}

// HandleSearch handles the /search command.
func (h *CommandHandlers) HandleSearch(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var query, sourceName string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "query":
			query = opt.StringValue()
		case "source":
			sourceName = opt.StringValue()
		}
	}
	source := domain.ParseSearchSource(sourceName)

	req, err := h.playback.PrepareSearch(usecases.SearchInput{
		PlayInput: usecases.PlayInput{
			GuildID:       ids.guildID,
			UserID:        ids.userID,
			UserName:      ids.userName,
			TextChannelID: ids.channelID,
			Query:         query,
		},
		Source: source,
	})
	if err != nil {
		return h.respondPreconditionError(r, "search", err)
	}

	if err := deferResponse(r); err != nil {
		return err
	}

	sourceLabel := strings.ToUpper(source.Name())

	searching := embed(
		"Searching...",
		fmt.Sprintf("Searching for: `%s`\nSource: `%s`", query, sourceLabel),
		colorInfo,
	)
	searching.Fields = []*discordgo.MessageEmbedField{
		{Name: "Alternative Search Tips", Value: bulletList([]string{
			"Try different keywords",
			"Use artist name + song title",
			"Try different sources (Spotify/SoundCloud)",
			"Use direct URLs when possible",
		})},
	}
	if err := editEmbed(r, searching); err != nil {
		slog.Warn("failed to edit search reply", "guild", ids.guildID, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	if err := h.playback.Play(ctx, req); err != nil {
		slog.Error("failed to search", "guild", ids.guildID, "query", req.Query, "error", err)

		failed := embed("Search Failed", fmt.Sprintf("Could not find or play: `%s`", query), colorWarning)
		failed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Error Details", Value: truncate(err.Error(), maxErrorDetail)},
			{Name: "Alternative Solutions", Value: bulletList([]string{
				"Try using `/play` with a direct URL",
				"Search on Spotify/SoundCloud and copy the link",
				"Try different search terms",
			})},
		}
		return editEmbed(r, failed)
	}

	success := embed("Search Successful", fmt.Sprintf("Added to queue: `%s`", query), colorSuccess)
	success.Fields = []*discordgo.MessageEmbedField{
		{Name: "Source", Value: sourceLabel, Inline: true},
		{Name: "Requested by", Value: fmt.Sprintf("<@%d>", ids.userID), Inline: true},
	}
	return editEmbed(r, success)
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	outcome, err := h.playback.Stop(context.Background(), usecases.StopInput{
		GuildID: ids.guildID,
		UserID:  ids.userID,
	})
	if err != nil {
		if usecases.IsPrecondition(err) {
			return respondError(r, preconditionMessage(err))
		}
		slog.Error("failed to stop", "guild", ids.guildID, "error", err)
		return respondEmbed(r, embed(
			"Error",
			fmt.Sprintf(
				"Error stopping music: %s\n\nTry using `/disconnect` to force leave the voice channel.",
				truncate(err.Error(), maxErrorDetail),
			),
			colorError,
		))
	}

	switch outcome {
	case usecases.StopOutcomeNothingPlaying:
		return respondEmbed(r, embed(
			"",
			"No music is currently playing. Use `/disconnect` or `/leave` to make me leave the voice channel.",
			colorInfo,
		))
	case usecases.StopOutcomeForceStopped:
		return respondSuccess(r, "Force stopped music and cleared the queue!")
	default:
		return respondSuccess(r, "Stopped playing music and cleared the queue!")
	}
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var seconds int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "delay" {
			seconds = opt.IntValue()
		}
	}
	delay := time.Duration(seconds) * time.Second
	if delay < 0 || delay > usecases.MaxLeaveDelay {
		return respondError(r, fmt.Sprintf(
			"Delay must be between 0 and %d seconds.",
			int(usecases.MaxLeaveDelay.Seconds()),
		))
	}

	input := usecases.LeaveInput{GuildID: ids.guildID, UserID: ids.userID}

	if delay == 0 {
		return h.leaveNow(r, input, "Successfully left the voice channel!")
	}

	check, err := h.voiceChannel.CheckLeave(input)
	if err != nil {
		return h.respondPreconditionError(r, "leave", err)
	}
	if !check.WasConnected {
		return respondNotConnected(r)
	}

	if err := respondEmbed(r, embed(
		"",
		fmt.Sprintf("I will leave the voice channel in **%d seconds**...", seconds),
		colorInfo,
	)); err != nil {
		return err
	}

	output, err := h.voiceChannel.LeaveAfter(input, delay, func(leaveErr error) {
		var e *discordgo.MessageEmbed
		if leaveErr != nil {
			e = embed("", "Failed to leave the voice channel after delay.", colorError)
		} else {
			e = embed("", fmt.Sprintf("Left the voice channel after %d seconds!", seconds), colorSuccess)
		}
		if err := followUpEmbed(r, e); err != nil {
			slog.Warn("failed to send leave follow-up", "guild", ids.guildID, "error", err)
		}
	})
	if err != nil {
		return followUpEmbed(r, embed("", "Could not schedule leaving: "+preconditionMessage(err), colorError))
	}
	if !output.WasConnected {
		return followUpEmbed(r, embed("", "I already left the voice channel.", colorInfo))
	}

	return nil
}

// HandleDisconnect handles the /disconnect command.
func (h *CommandHandlers) HandleDisconnect(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	return h.leaveNow(
		r,
		usecases.LeaveInput{GuildID: ids.guildID, UserID: ids.userID},
		"Successfully disconnected from the voice channel!",
	)
}

func (h *CommandHandlers) leaveNow(r bot.Responder, input usecases.LeaveInput, success string) error {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()

	output, err := h.voiceChannel.Leave(ctx, input)
	if err != nil {
		if usecases.IsPrecondition(err) {
			return respondError(r, preconditionMessage(err))
		}
		slog.Error("failed to leave voice channel", "guild", input.GuildID, "error", err)
		return respondEmbed(r, embed(
			"Error",
			"Failed to leave the voice channel: "+truncate(err.Error(), maxErrorDetail),
			colorError,
		))
	}
	if !output.WasConnected {
		return respondNotConnected(r)
	}

	return respondSuccess(r, success)
}

func respondNotConnected(r bot.Responder) error {
	return respondEphemeral(r, embed("", "I'm not connected to any voice channel.", colorInfo))
}

// HandleVoiceStatus handles the /voicestatus command.
func (h *CommandHandlers) HandleVoiceStatus(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	status, err := h.voiceChannel.Status(usecases.StatusInput{
		GuildID: ids.guildID,
		UserID:  ids.userID,
	})
	if err != nil {
		slog.Error("failed to read voice status", "guild", ids.guildID, "error", err)
		return respondError(r, "Could not read the voice status: "+err.Error())
	}

	return respondEphemeral(r, voiceStatusEmbed(ids.guildID, status))
}

func voiceStatusEmbed(guildID snowflake.ID, status *usecases.StatusOutput) *discordgo.MessageEmbed {
	userInVoice := status.UserChannelID != 0
	botInVoice := status.BotChannelID != 0

	e := embed("Voice Connection Status", "Current voice connection and queue status", colorInfo)
	e.Fields = []*discordgo.MessageEmbedField{
		{
			Name:   "User Status",
			Value:  channelStatus(userInVoice, status.UserChannelName, status.UserChannelID),
			Inline: true,
		},
		{
			Name:   "Bot Status",
			Value:  channelStatus(botInVoice, status.BotChannelName, status.BotChannelID),
			Inline: true,
		},
		{
			Name: "Queue Status",
			Value: fmt.Sprintf(
				"Queue Exists: %s\nSongs: %d\nPlaying: %s",
				checkmark(status.HasQueue),
				status.QueueLength,
				checkmark(status.IsPlaying),
			),
			Inline: true,
		},
		{
			Name: "Connection Status",
			Value: fmt.Sprintf(
				"Voice Connection: %s\nSame Channel: %s",
				checkmark(status.EngineConnected),
				checkmark(status.SameChannel),
			),
		},
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Guild ID: %d", guildID)}
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)

	switch {
	case !botInVoice:
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  "Issue Detected",
			Value: "Bot is not in any voice channel. Use `/play` to connect.",
		})
	case !status.SameChannel:
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  "Issue Detected",
			Value: "You and the bot are in different voice channels.",
		})
	case !status.HasQueue:
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  "Possible Issue",
			Value: "Bot is in a voice channel but no queue exists. Use `/disconnect` if it is stuck.",
		})
	}

	return e
}

func channelStatus(inVoice bool, name string, id snowflake.ID) string {
	channelName, channelID := "None", "None"
	if inVoice {
		channelID = id.String()
		channelName = name
		if channelName == "" {
			channelName = "Unknown"
		}
	}
	return fmt.Sprintf("In Voice: %s\nChannel: %s\nID: `%s`", checkmark(inVoice), channelName, channelID)
}

// respondPreconditionError answers a failed precondition ephemerally.
// Anything else is logged and answered with its text.
func (h *CommandHandlers) respondPreconditionError(r bot.Responder, command string, err error) error {
	if !usecases.IsPrecondition(err) {
		slog.Error("failed to check command preconditions", "command", command, "error", err)
	}
	return respondError(r, preconditionMessage(err))
}
