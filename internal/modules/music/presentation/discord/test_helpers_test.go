package discord

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

const (
	testGuildID     = snowflake.ID(1)
	testUserID      = snowflake.ID(10)
	testTextChannel = snowflake.ID(200)
	testVoiceA      = snowflake.ID(100)
	testVoiceB      = snowflake.ID(101)
)

type fakeEngine struct {
	mu       sync.Mutex
	queue    *domain.Queue
	playErr  error
	stopErr  error
	queries  []string
	stops    int
	pauses   int
	skips    int
	leaves   int
	leaveErr error
	joined   snowflake.ID
}

func (f *fakeEngine) GetQueue(snowflake.ID) *domain.Queue {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queue == nil {
		return nil
	}
	return f.queue.Clone()
}

func (f *fakeEngine) Play(_ context.Context, query string, _ ports.PlayOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.playErr
}

func (f *fakeEngine) Stop(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.queue = nil
	return nil
}

func (f *fakeEngine) Pause(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeEngine) Truncate(snowflake.ID) error { return nil }

func (f *fakeEngine) Skip(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skips++
	f.queue = nil
	return nil
}

func (f *fakeEngine) Join(_ context.Context, _, channelID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = channelID
	return nil
}

func (f *fakeEngine) Leave(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	if f.leaveErr != nil {
		return f.leaveErr
	}
	f.joined = 0
	return nil
}

func (f *fakeEngine) Get(snowflake.ID) (snowflake.ID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joined, f.joined != 0
}

func (f *fakeEngine) calls() (plays, stops, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries), f.stops, f.leaves
}

type fakeVoiceState struct {
	userChannel snowflake.ID
	botChannel  snowflake.ID
	canSpeak    bool
}

func (f *fakeVoiceState) UserVoiceChannel(snowflake.ID, snowflake.ID) (snowflake.ID, error) {
	return f.userChannel, nil
}

func (f *fakeVoiceState) BotVoiceChannel(snowflake.ID) (snowflake.ID, error) {
	return f.botChannel, nil
}

func (f *fakeVoiceState) ChannelName(channelID snowflake.ID) string {
	if channelID == testVoiceA {
		return "Music"
	}
	return ""
}

func (f *fakeVoiceState) CanConnectAndSpeak(snowflake.ID) (bool, error) {
	return f.canSpeak, nil
}

type fakeDisconnector struct {
	calls int
	err   error
}

func (f *fakeDisconnector) ForceDisconnect(context.Context, snowflake.ID) error {
	f.calls++
	return f.err
}

type handlerFixture struct {
	engine       *fakeEngine
	voiceState   *fakeVoiceState
	disconnector *fakeDisconnector
	handlers     *CommandHandlers
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		engine:       &fakeEngine{},
		voiceState:   &fakeVoiceState{userChannel: testVoiceA, canSpeak: true},
		disconnector: &fakeDisconnector{},
	}
	playback := usecases.NewPlaybackService(f.engine, f.engine, f.voiceState)
	voiceChannel := usecases.NewVoiceChannelService(
		f.engine,
		f.engine,
		f.voiceState,
		f.disconnector,
		usecases.WithAfterFunc(func(_ time.Duration, fn func()) { fn() }),
	)
	f.handlers = NewCommandHandlers(playback, voiceChannel)
	return f
}

// botIn puts the bot in channelID with a one-song queue.
func (f *handlerFixture) botIn(channelID snowflake.ID) {
	f.voiceState.botChannel = channelID
	f.engine.joined = channelID
	queue := domain.NewQueue(testGuildID, channelID, testTextChannel)
	queue.Append(domain.Song{Encoded: "x", Name: "Song"})
	f.engine.queue = queue
}

func newInteraction(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID.String(),
			ChannelID: testTextChannel.String(),
			Member: &discordgo.Member{
				User: &discordgo.User{ID: testUserID.String(), Username: "alice"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOption(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func responseEmbed(t *testing.T, response *discordgo.InteractionResponse) *discordgo.MessageEmbed {
	t.Helper()
	if response == nil || response.Data == nil || len(response.Data.Embeds) == 0 {
		t.Fatalf("expected an embed response, got %+v", response)
	}
	return response.Data.Embeds[0]
}

func isEphemeral(response *discordgo.InteractionResponse) bool {
	return response.Data != nil && response.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func editEmbedOf(t *testing.T, edit *discordgo.WebhookEdit) *discordgo.MessageEmbed {
	t.Helper()
	if edit == nil || edit.Embeds == nil || len(*edit.Embeds) == 0 {
		t.Fatalf("expected an embed edit, got %+v", edit)
	}
	return (*edit.Embeds)[0]
}
