package infrastructure

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
)

const voicePermissions = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak

// VoiceStateProvider provides Discord voice state information from the session state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(state *discordgo.State) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: state,
	}
}

// UserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns 0 if the user is not in a voice channel.
func (v *VoiceStateProvider) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	guild, err := v.state.Guild(guildID.String())
	if err != nil {
		return 0, err
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			channelID, err := snowflake.Parse(vs.ChannelID)
			if err != nil {
				return 0, err
			}
			return channelID, nil
		}
	}

	return 0, nil
}

// BotVoiceChannel returns the voice channel the bot is in, or 0.
func (v *VoiceStateProvider) BotVoiceChannel(guildID snowflake.ID) (snowflake.ID, error) {
	botID, ok := v.botID()
	if !ok {
		return 0, nil
	}
	return v.UserVoiceChannel(guildID, botID)
}

// ChannelName returns the channel's name, or an empty string if it is not cached.
func (v *VoiceStateProvider) ChannelName(channelID snowflake.ID) string {
	channel, err := v.state.Channel(channelID.String())
	if err != nil {
		return ""
	}
	return channel.Name
}

// CanConnectAndSpeak reports whether the bot holds Connect and Speak in the channel.
func (v *VoiceStateProvider) CanConnectAndSpeak(channelID snowflake.ID) (bool, error) {
	botID, ok := v.botID()
	if !ok {
		return false, nil
	}

	perms, err := v.state.UserChannelPermissions(botID.String(), channelID.String())
	if err != nil {
		return false, err
	}

	return perms&voicePermissions == voicePermissions, nil
}

// HumanListeners counts the non-bot users connected to the voice channel.
// Users whose member data is not cached are counted as humans.
func (v *VoiceStateProvider) HumanListeners(guildID, channelID snowflake.ID) (int, error) {
	guild, err := v.state.Guild(guildID.String())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID.String() {
			continue
		}
		if v.isBot(guild.ID, vs) {
			continue
		}
		count++
	}

	return count, nil
}

func (v *VoiceStateProvider) isBot(guildID string, vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}

	member, err := v.state.Member(guildID, vs.UserID)
	if err != nil || member.User == nil {
		return false
	}
	return member.User.Bot
}

func (v *VoiceStateProvider) botID() (snowflake.ID, bool) {
	if v.state.User == nil {
		return 0, false
	}

	id, err := snowflake.Parse(v.state.User.ID)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var (
	_ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
	_ listenerCounter          = (*VoiceStateProvider)(nil)
)
