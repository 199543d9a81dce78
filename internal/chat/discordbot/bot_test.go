package discordbot

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"draftloop/internal/chat"
)

func TestDraftButtonsCarryDraftID(t *testing.T) {
	t.Parallel()

	components := draftButtons("d-7")
	if len(components) != 1 {
		t.Fatalf("components = %d, want 1 action row", len(components))
	}
	row, ok := components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("component is %T, want ActionsRow", components[0])
	}
	if len(row.Components) != 3 {
		t.Fatalf("buttons = %d, want 3", len(row.Components))
	}

	wantActions := []chat.Action{chat.ActionApprove, chat.ActionRework, chat.ActionSyndicate}
	for i, c := range row.Components {
		btn, ok := c.(discordgo.Button)
		if !ok {
			t.Fatalf("component %d is %T, want Button", i, c)
		}
		action, draftID, ok := chat.ParseCustomID(btn.CustomID)
		if !ok || action != wantActions[i] || draftID != "d-7" {
			t.Errorf("button %d custom ID = %q", i, btn.CustomID)
		}
	}
}

func TestInteractionUser(t *testing.T) {
	t.Parallel()

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "u1"},
	}}
	if u := interactionUser(dm); u == nil || u.ID != "u1" {
		t.Errorf("DM user = %+v", u)
	}

	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "u2"}},
	}}
	if u := interactionUser(guild); u == nil || u.ID != "u2" {
		t.Errorf("guild user = %+v", u)
	}

	empty := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
	if u := interactionUser(empty); u != nil {
		t.Errorf("empty user = %+v", u)
	}
}
