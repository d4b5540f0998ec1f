package discord

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

const sendTimeout = 10 * time.Second

// EmbedSender sends an embed to a text channel.
type EmbedSender interface {
	SendEmbed(ctx context.Context, channelID snowflake.ID, embed *discordgo.MessageEmbed) error
}

// EventFormatter renders queue events as embeds in the queue's text channel.
type EventFormatter struct {
	sender     EmbedSender
	idleDelay  time.Duration
	emptyDelay time.Duration
}

// NewEventFormatter creates a new EventFormatter. The delays are only shown to users.
func NewEventFormatter(sender EmbedSender, idleDelay, emptyDelay time.Duration) *EventFormatter {
	return &EventFormatter{
		sender:     sender,
		idleDelay:  idleDelay,
		emptyDelay: emptyDelay,
	}
}

// Start subscribes the formatter to every queue event.
func (f *EventFormatter) Start(subscriber ports.EventSubscriber) error {
	subscriptions := []struct {
		eventType reflect.Type
		handler   func(context.Context, domain.Event)
	}{
		{reflect.TypeFor[domain.PlaySongEvent](), f.onPlaySong},
		{reflect.TypeFor[domain.AddSongEvent](), f.onAddSong},
		{reflect.TypeFor[domain.AddListEvent](), f.onAddList},
		{reflect.TypeFor[domain.ErrorEvent](), f.onError},
		{reflect.TypeFor[domain.FinishEvent](), f.onFinish},
		{reflect.TypeFor[domain.EmptyEvent](), f.onEmpty},
		{reflect.TypeFor[domain.DisconnectEvent](), f.onDisconnect},
		{reflect.TypeFor[domain.SearchNoResultEvent](), f.onSearchNoResult},
		{reflect.TypeFor[domain.SearchInvalidAnswerEvent](), f.onSearchInvalidAnswer},
	}

	for _, sub := range subscriptions {
		if err := subscriber.Subscribe(sub.eventType, sub.handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", sub.eventType.Name(), err)
		}
	}
	return nil
}

func (f *EventFormatter) onPlaySong(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.PlaySongEvent)
	if !ok {
		return
	}
	f.send(ctx, e.Guild(), e.Queue.TextChannelID(), nowPlayingEmbed(e.Queue, e.Song))
}

func (f *EventFormatter) onAddSong(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.AddSongEvent)
	if !ok {
		return
	}
	f.send(ctx, e.Guild(), e.Queue.TextChannelID(), addedSongEmbed(e.Queue, e.Song))
}

func (f *EventFormatter) onAddList(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.AddListEvent)
	if !ok {
		return
	}
	f.send(ctx, e.Guild(), e.Queue.TextChannelID(), addedListEmbed(e.Playlist))
}

func (f *EventFormatter) onError(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.ErrorEvent)
	if !ok {
		return
	}
	slog.Error("queue engine reported an error", "guild", e.GuildID, "error", e.Err)
	f.send(ctx, e.GuildID, e.TextChannelID, embed("Error", describeEventError(e.Err), colorError))
}

func (f *EventFormatter) onFinish(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.FinishEvent)
	if !ok {
		return
	}
	f.send(ctx, e.Guild(), e.Queue.TextChannelID(), embed(
		"Queue Finished",
		fmt.Sprintf(
			"No more songs in the queue. Disconnecting from the voice channel in %s...",
			humanDelay(f.idleDelay),
		),
		colorNotice,
	))
}

func (f *EventFormatter) onEmpty(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.EmptyEvent)
	if !ok {
		return
	}
	f.send(ctx, e.Guild(), e.Queue.TextChannelID(), embed(
		"Channel Empty",
		fmt.Sprintf("Voice channel is empty! Leaving the channel in %s...", humanDelay(f.emptyDelay)),
		colorWarning,
	))
}

func (f *EventFormatter) onDisconnect(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.DisconnectEvent)
	if !ok {
		return
	}
	f.send(ctx, e.Guild(), e.Queue.TextChannelID(), embed(
		"Disconnected",
		"I have been disconnected from the voice channel.",
		colorWarning,
	))
}

func (f *EventFormatter) onSearchNoResult(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.SearchNoResultEvent)
	if !ok {
		return
	}
	f.send(ctx, e.GuildID, e.TextChannelID, embed(
		"No Results",
		fmt.Sprintf("No results found for `%s`.", truncate(e.Query, maxErrorDetail)),
		colorError,
	))
}

func (f *EventFormatter) onSearchInvalidAnswer(ctx context.Context, event domain.Event) {
	e, ok := event.(domain.SearchInvalidAnswerEvent)
	if !ok {
		return
	}
	f.send(ctx, e.GuildID, e.TextChannelID, embed(
		"Invalid Search",
		"That search could not be understood. Try a song title or a link.",
		colorError,
	))
}

// send delivers one embed. Failures are logged and dropped.
func (f *EventFormatter) send(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	e *discordgo.MessageEmbed,
) {
	if channelID == 0 {
		slog.Warn("skipped event message without a text channel", "guild", guildID, "title", e.Title)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := f.sender.SendEmbed(ctx, channelID, e); err != nil {
		slog.Warn(
			"failed to send event message",
			"guild", guildID,
			"channel", channelID,
			"title", e.Title,
			"error", err,
		)
	}
}

func nowPlayingEmbed(queue *domain.Queue, song domain.Song) *discordgo.MessageEmbed {
	e := embed("Now Playing", songLink(song), colorSuccess)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Duration", Value: song.FormattedDuration(), Inline: true},
		{Name: "Requested by", Value: song.RequesterMention(), Inline: true},
	}
	if song.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: song.Thumbnail}
	}
	e.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Volume: %d%% | Filter: %s", queue.Volume(), queue.FilterSummary()),
	}
	return e
}

func addedSongEmbed(queue *domain.Queue, song domain.Song) *discordgo.MessageEmbed {
	e := embed("Added to Queue", songLink(song), colorInfo)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Duration", Value: song.FormattedDuration(), Inline: true},
		{Name: "Requested by", Value: song.RequesterMention(), Inline: true},
		{Name: "Position in queue", Value: strconv.Itoa(queue.Len() - 1), Inline: true},
	}
	if song.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: song.Thumbnail}
	}
	return e
}

func addedListEmbed(playlist domain.Playlist) *discordgo.MessageEmbed {
	description := fmt.Sprintf("**%s**", playlist.Name)
	if playlist.URL != "" {
		description = fmt.Sprintf("[%s](%s)", playlist.Name, playlist.URL)
	}

	requester := "Unknown"
	if playlist.RequesterID != 0 {
		requester = fmt.Sprintf("<@%d>", playlist.RequesterID)
	}

	e := embed("Playlist Added", description, colorInfo)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Songs added", Value: strconv.Itoa(playlist.Len()), Inline: true},
		{Name: "Requested by", Value: requester, Inline: true},
	}
	if playlist.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: playlist.Thumbnail}
	}
	return e
}

func songLink(song domain.Song) string {
	if song.URL == "" {
		return fmt.Sprintf("**%s**", song.Name)
	}
	return fmt.Sprintf("[%s](%s)", song.Name, song.URL)
}

// humanDelay renders d as "5 seconds" or "1 minute 30 seconds".
func humanDelay(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	minutes, seconds := seconds/60, seconds%60

	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return strconv.Itoa(n) + " " + unit + "s"
	}

	switch {
	case minutes == 0:
		return plural(seconds, "second")
	case seconds == 0:
		return plural(minutes, "minute")
	default:
		return plural(minutes, "minute") + " " + plural(seconds, "second")
	}
}
