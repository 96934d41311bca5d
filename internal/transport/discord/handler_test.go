package discord

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	messageDomain "github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
	transcriptDomain "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	transcriptService "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/service"
	userService "github.com/reshetovitsme/discord-scribe/internal/modules/user/service"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
)

type stubRepo struct {
	page messageDomain.Page
	err  error
}

func (r *stubRepo) FetchPage(_ context.Context, _ string, beforeID string, _ int) (messageDomain.Page, error) {
	if r.err != nil {
		return nil, r.err
	}
	if beforeID != "" {
		return nil, nil
	}
	return r.page, nil
}

func (r *stubRepo) GetChannel(_ context.Context, channelID string) (*messageDomain.Channel, error) {
	return &messageDomain.Channel{ID: channelID, Name: "dev-chat"}, nil
}

func newTestHandler(cfg *config.Config, repo *stubRepo, session *discordgo.Session) *Handler {
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = time.Minute
	}
	return New(cfg, session, transcriptService.New(cfg, repo), userService.New(cfg))
}

func scribeInteraction(options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "900",
		AppID:     "555",
		Token:     "interaction-token",
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "42",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "7", Username: "alice"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    CommandName,
			Options: options,
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

func conversation() messageDomain.Page {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return messageDomain.Page{
		{ID: "2", Author: "bob", Content: "yo", Timestamp: t0.Add(5 * time.Second),
			Reactions: []messageDomain.Reaction{{Emoji: "👍", Count: 1}}},
		{ID: "1", Author: "alice", Content: "hi <@123>", Timestamp: t0},
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		options []*discordgo.ApplicationCommandInteractionDataOption
		want    transcriptDomain.Request
	}{
		{
			name: "no options",
			want: transcriptDomain.Request{ChannelID: "42"},
		},
		{
			name:    "flags and filename",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("flags", "usernames,reactions"), stringOption("filename", "  notes ")},
			want: transcriptDomain.Request{
				ChannelID: "42",
				Filename:  "notes",
				Options:   transcriptDomain.IncludeUsernames | transcriptDomain.IncludeReactions,
			},
		},
		{
			name:    "single flag",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("flags", "timestamps")},
			want:    transcriptDomain.Request{ChannelID: "42", Options: transcriptDomain.IncludeTimestamps},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(scribeInteraction(tt.options...))
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRequest = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRequest_UnknownFlag(t *testing.T) {
	_, err := ParseRequest(scribeInteraction(stringOption("flags", "colors")))
	if !errors.Is(err, scribeErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommands_ChoicesParse(t *testing.T) {
	commands := Commands()
	if len(commands) != 1 || commands[0].Name != CommandName {
		t.Fatalf("unexpected commands %+v", commands)
	}

	choices := commands[0].Options[0].Choices
	if len(choices) != 7 {
		t.Fatalf("expected 7 flag combinations, got %d", len(choices))
	}

	seen := make(map[transcriptDomain.FormattingOptions]bool)
	for _, choice := range choices {
		opts, err := transcriptDomain.ParseOptions(choice.Value.(string))
		if err != nil {
			t.Fatalf("choice %q does not parse: %v", choice.Name, err)
		}
		if opts == 0 || seen[opts] {
			t.Errorf("choice %q is empty or duplicated", choice.Name)
		}
		seen[opts] = true
	}
}

func TestIsScribeCommand(t *testing.T) {
	if !IsScribeCommand(scribeInteraction()) {
		t.Error("scribe interaction not recognized")
	}
	if IsScribeCommand(&discordgo.Interaction{Type: discordgo.InteractionPing}) {
		t.Error("ping recognized as scribe command")
	}

	other := scribeInteraction()
	other.Data = discordgo.ApplicationCommandInteractionData{Name: "other"}
	if IsScribeCommand(other) {
		t.Error("other command recognized as scribe command")
	}
}

func TestInteractionUser(t *testing.T) {
	guild := scribeInteraction()
	if u := InteractionUser(guild); u == nil || u.ID != "7" {
		t.Errorf("guild user = %+v", u)
	}

	dm := &discordgo.Interaction{User: &discordgo.User{ID: "8", Username: "bob"}}
	if u := InteractionUser(dm); u == nil || u.Username != "bob" {
		t.Errorf("dm user = %+v", u)
	}

	if u := InteractionUser(&discordgo.Interaction{}); u != nil {
		t.Errorf("expected no user, got %+v", u)
	}
}

func TestExecute(t *testing.T) {
	h := newTestHandler(&config.Config{}, &stubRepo{page: conversation()}, nil)

	reply, err := h.Execute(context.Background(), scribeInteraction(stringOption("flags", "usernames,reactions")))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !strings.Contains(*reply.Content, "2 messages") || !strings.Contains(*reply.Content, "dev_chat.md") {
		t.Errorf("reply = %q", *reply.Content)
	}
	if len(reply.Files) != 1 || reply.Files[0].Name != "dev_chat.md" {
		t.Fatalf("unexpected files %+v", reply.Files)
	}

	body, _ := io.ReadAll(reply.Files[0].Reader)
	if string(body) != "alice: hi \n\nbob: yo 👍" {
		t.Errorf("attachment = %q", body)
	}
}

func TestExecute_EmptyChannel(t *testing.T) {
	h := newTestHandler(&config.Config{}, &stubRepo{}, nil)

	reply, err := h.Execute(context.Background(), scribeInteraction())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(reply.Files) != 0 || !strings.Contains(*reply.Content, "no messages") {
		t.Errorf("unexpected reply %q with %d files", *reply.Content, len(reply.Files))
	}
}

func TestExecute_Unauthorized(t *testing.T) {
	h := newTestHandler(&config.Config{AllowedUsers: []string{"99"}}, &stubRepo{page: conversation()}, nil)

	_, err := h.Execute(context.Background(), scribeInteraction())
	if !errors.Is(err, scribeErrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{scribeErrors.ErrUnauthorized, "not authorized"},
		{scribeErrors.ErrHistoryTooLarge, "export limit"},
		{scribeErrors.ErrAccess, "permission"},
		{scribeErrors.ErrNotFound, "no longer exists"},
		{scribeErrors.ErrTransient, "try again"},
		{context.DeadlineExceeded, "timed out"},
		{errors.New("boom"), "Failed to export"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("UserMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}

	_, err := transcriptDomain.ParseOptions("bold")
	if got := UserMessage(err); !strings.Contains(got, "usernames, timestamps, reactions") {
		t.Errorf("flag error message = %q", got)
	}
}

func TestDispatch_EditsOriginalResponse(t *testing.T) {
	edits := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || !strings.HasSuffix(r.URL.Path, "/webhooks/555/interaction-token/messages/@original") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		edits <- string(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1000","channel_id":"42"}`))
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL)
	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("discordgo.New: %v", err)
	}
	session.Client = &http.Client{Transport: rewriteTransport{target: target}, Timeout: 5 * time.Second}

	h := newTestHandler(&config.Config{}, &stubRepo{err: scribeErrors.ErrAccess}, session)
	defer h.Stop()
	h.Dispatch(scribeInteraction())

	select {
	case body := <-edits:
		if !strings.Contains(body, "permission") {
			t.Errorf("edit body = %s", body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("original response was not edited")
	}
}

func TestDispatch_IgnoredAfterStop(t *testing.T) {
	var edits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		edits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1000","channel_id":"42"}`))
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL)
	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("discordgo.New: %v", err)
	}
	session.Client = &http.Client{Transport: rewriteTransport{target: target}, Timeout: 5 * time.Second}

	h := newTestHandler(&config.Config{}, &stubRepo{page: conversation()}, session)
	h.Stop()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Dispatch(scribeInteraction())
		}()
	}
	wg.Wait()
	h.Stop()

	if n := edits.Load(); n != 0 {
		t.Errorf("%d jobs ran after Stop", n)
	}
}

func TestStop_CancelsRunningJobs(t *testing.T) {
	h := newTestHandler(&config.Config{}, &stubRepo{}, nil)
	h.Stop()

	_, err := h.Execute(h.ctx, scribeInteraction())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation after Stop, got %v", err)
	}
}

// rewriteTransport sends every discordgo request to the test server.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}
