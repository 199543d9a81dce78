// Package discordbot provides the Discord DM transport for the content
// pipeline. It owns the discordgo.Session lifecycle, forwards the owner's
// direct messages and draft button presses to a [chat.Handler], and
// implements [chat.Transport] for outbound delivery.
package discordbot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"draftloop/internal/chat"
)

// Compile-time interface check.
var _ chat.Transport = (*Bot)(nil)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token (e.g., "MTIz...").
	Token string `yaml:"token"`

	// OwnerID is the Discord user ID the bot talks to. Messages from
	// anyone else are ignored.
	OwnerID string `yaml:"owner_id"`
}

// Bot owns the Discord gateway connection. All pipeline traffic flows over
// a single DM channel with the configured owner.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	ownerID   string
	channelID string // owner DM channel, resolved lazily
	handler   chat.Handler
	closeOnce sync.Once
}

// New creates a Bot and connects to Discord. Call [Bot.SetHandler] before
// any owner traffic should be processed.
func New(_ context.Context, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discordbot: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session: session,
		ownerID: cfg.OwnerID,
	}

	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discordbot: open session: %w", err)
	}

	slog.Info("discord bot connected", "owner_id", cfg.OwnerID)
	return b, nil
}

// SetHandler installs the consumer for owner messages and button presses.
func (b *Bot) SetHandler(h chat.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Run blocks until ctx is cancelled. The gateway connection itself runs on
// discordgo's internal goroutines.
func (b *Bot) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close disconnects from Discord.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discordbot: close session: %w", err)
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}

// ─── Outbound: chat.Transport ───────────────────────────────────────────────

// SendMessage implements chat.Transport.
func (b *Bot) SendMessage(_ context.Context, text string) (string, error) {
	channelID, err := b.ownerChannel()
	if err != nil {
		return "", err
	}
	msg, err := b.session.ChannelMessageSend(channelID, text)
	if err != nil {
		return "", fmt.Errorf("discordbot: send message: %w", err)
	}
	return msg.ID, nil
}

// ReplyInThread implements chat.Transport.
func (b *Bot) ReplyInThread(_ context.Context, threadID, text string) (string, error) {
	channelID, err := b.ownerChannel()
	if err != nil {
		return "", err
	}
	msg, err := b.session.ChannelMessageSendReply(channelID, text, &discordgo.MessageReference{
		MessageID: threadID,
		ChannelID: channelID,
	})
	if err != nil {
		return "", fmt.Errorf("discordbot: reply to %s: %w", threadID, err)
	}
	return msg.ID, nil
}

// SendWithActions implements chat.Transport.
func (b *Bot) SendWithActions(_ context.Context, text, draftID string) (string, error) {
	channelID, err := b.ownerChannel()
	if err != nil {
		return "", err
	}
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    text,
		Components: draftButtons(draftID),
	})
	if err != nil {
		return "", fmt.Errorf("discordbot: send draft message: %w", err)
	}
	return msg.ID, nil
}

// draftButtons builds the approve/rework/syndicate action row for a draft.
func draftButtons(draftID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: chat.CustomID(chat.ActionApprove, draftID),
				},
				discordgo.Button{
					Label:    "Rework",
					Style:    discordgo.SecondaryButton,
					CustomID: chat.CustomID(chat.ActionRework, draftID),
				},
				discordgo.Button{
					Label:    "Syndicate",
					Style:    discordgo.PrimaryButton,
					CustomID: chat.CustomID(chat.ActionSyndicate, draftID),
				},
			},
		},
	}
}

// ownerChannel resolves and caches the DM channel with the owner.
func (b *Bot) ownerChannel() (string, error) {
	b.mu.RLock()
	id := b.channelID
	b.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	ch, err := b.session.UserChannelCreate(b.ownerID)
	if err != nil {
		return "", fmt.Errorf("discordbot: open DM channel: %w", err)
	}

	b.mu.Lock()
	b.channelID = ch.ID
	b.mu.Unlock()
	return ch.ID, nil
}

// ─── Inbound: gateway handlers ──────────────────────────────────────────────

// onMessageCreate forwards owner DMs to the handler. Everything else is
// dropped.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID != b.ownerID {
		return
	}

	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil {
		return
	}

	msg := chat.Incoming{Text: m.Content}
	if m.MessageReference != nil {
		msg.ThreadID = m.MessageReference.MessageID
	}

	if err := h.HandleMessage(context.Background(), msg); err != nil {
		slog.Error("discordbot: handle message failed", "err", err)
	}
}

// onInteractionCreate forwards draft button presses to the handler.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	if user := interactionUser(i); user == nil || user.ID != b.ownerID {
		return
	}

	action, draftID, ok := chat.ParseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	// Ack immediately so Discord does not show "interaction failed"; the
	// pipeline responds with its own messages.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		slog.Warn("discordbot: interaction ack failed", "err", err)
	}

	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil {
		return
	}

	if err := h.HandleAction(context.Background(), action, draftID); err != nil {
		slog.Error("discordbot: handle action failed", "action", action, "draft_id", draftID, "err", err)
	}
}

// interactionUser returns the invoking user for DM or guild interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.User != nil {
		return i.User
	}
	if i.Member != nil {
		return i.Member.User
	}
	return nil
}
