package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

// Discord allows five messages per five seconds in a channel.
const (
	channelSendInterval = time.Second
	channelSendBurst    = 5
)

// embedSender is the part of discordgo.Session the Notifier uses.
type embedSender interface {
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// Notifier sends embeds to Discord text channels, pacing sends per channel.
type Notifier struct {
	sender embedSender

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return newNotifier(session)
}

func newNotifier(sender embedSender) *Notifier {
	return &Notifier{
		sender:   sender,
		limiters: make(map[snowflake.ID]*rate.Limiter),
	}
}

// SendEmbed sends embed to the channel once the channel's limiter allows it.
func (n *Notifier) SendEmbed(
	ctx context.Context,
	channelID snowflake.ID,
	embed *discordgo.MessageEmbed,
) error {
	if err := n.limiter(channelID).Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}

	if _, err := n.sender.ChannelMessageSendEmbed(channelID.String(), embed); err != nil {
		return fmt.Errorf("failed to send embed: %w", err)
	}
	return nil
}

func (n *Notifier) limiter(channelID snowflake.ID) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()

	limiter, ok := n.limiters[channelID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(channelSendInterval), channelSendBurst)
		n.limiters[channelID] = limiter
	}
	return limiter
}
