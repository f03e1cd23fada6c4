package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type stubCommand struct {
	name  string
	calls int
	err   error
}

func (c *stubCommand) Name() string        { return c.name }
func (c *stubCommand) Description() string { return "stub" }
func (c *stubCommand) Run(ctx interface{}) error {
	c.calls++
	return c.err
}
func (c *stubCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.name, Description: c.Description()}
}

func slashCtx(guildID, userID string) *SlashInteractionContext {
	return &SlashInteractionContext{
		Event: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			GuildID:   guildID,
			ChannelID: "chan",
			Member:    &discordgo.Member{User: &discordgo.User{ID: userID}},
		}},
	}
}

func TestWithGuildOnly(t *testing.T) {
	cmd := &stubCommand{name: "play"}
	wrapped := ApplyMiddlewares(cmd, WithGuildOnly())

	if err := wrapped.Run(slashCtx("", "u1")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if cmd.calls != 0 {
		t.Errorf("Expected DM invocation to be ignored, got %d calls", cmd.calls)
	}

	if err := wrapped.Run(slashCtx("g1", "u1")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if cmd.calls != 1 {
		t.Errorf("Expected 1 call, got %d", cmd.calls)
	}
}

func TestWithCommandLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	cmd := &stubCommand{name: "skip", err: errors.New("boom")}

	err := ApplyMiddlewares(cmd, WithCommandLogger(log)).Run(slashCtx("g1", "u42"))
	if err == nil || err.Error() != "boom" {
		t.Fatalf("Expected command error to pass through, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"command":"skip"`, `"user":"u42"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %s, got %s", want, out)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubCommand{name: "skip"}, WithGuildOnly())
	r.Register(&stubCommand{name: "play"}, WithGuildOnly())

	if _, ok := r.Get("play"); !ok {
		t.Error("Expected play to be registered")
	}
	if _, ok := r.Get("stop"); ok {
		t.Error("Expected stop to be unknown")
	}

	all := r.All()
	if len(all) != 2 || all[0].Name() != "play" || all[1].Name() != "skip" {
		t.Errorf("Expected [play skip], got %v", all)
	}

	defs := r.SlashDefinitions()
	if len(defs) != 2 {
		t.Fatalf("Expected 2 definitions through middleware, got %d", len(defs))
	}
	if defs[0].Type != discordgo.ChatApplicationCommand {
		t.Errorf("Expected chat command type, got %v", defs[0].Type)
	}
}

func TestInteractionUserID(t *testing.T) {
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "dm-user"}}}
	if got := InteractionUserID(dm); got != "dm-user" {
		t.Errorf("Expected dm-user, got %q", got)
	}
	if got := InteractionUserID(slashCtx("g", "member").Event); got != "member" {
		t.Errorf("Expected member, got %q", got)
	}
}
