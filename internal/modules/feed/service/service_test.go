package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reshetovitsme/discord-scribe/internal/modules/feed/domain"
	messageDomain "github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
)

type stubRepo struct {
	page      messageDomain.Page
	lastLimit int
}

func (r *stubRepo) FetchPage(_ context.Context, _ string, _ string, limit int) (messageDomain.Page, error) {
	r.lastLimit = limit
	return r.page, nil
}

func (r *stubRepo) GetChannel(_ context.Context, channelID string) (*messageDomain.Channel, error) {
	return &messageDomain.Channel{ID: channelID, Name: "announcements", GuildID: "7"}, nil
}

func newStubRepo() *stubRepo {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &stubRepo{page: messageDomain.Page{
		{ID: "11", Author: "bob", Content: "release <@3> is out & live", Timestamp: t0.Add(time.Hour),
			Reactions: []messageDomain.Reaction{{Emoji: "🎉", Count: 4}}},
		{ID: "10", Author: "alice", Content: "", Timestamp: t0},
	}}
}

func TestGenerateFeed(t *testing.T) {
	repo := newStubRepo()
	svc := New(&config.Config{FeedChannels: []string{"42"}}, repo)

	feed, err := svc.GenerateFeed(context.Background(), "42", "https://scribe.example")
	if err != nil {
		t.Fatalf("GenerateFeed: %v", err)
	}

	if repo.lastLimit != FeedSize {
		t.Errorf("fetched %d messages, want %d", repo.lastLimit, FeedSize)
	}
	if feed.Link.Href != "https://scribe.example/feed/42" {
		t.Errorf("feed link = %q", feed.Link.Href)
	}
	if !feed.Updated.After(feed.Created) {
		t.Errorf("Updated %v should be after Created %v", feed.Updated, feed.Created)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(feed.Items))
	}

	first := feed.Items[0]
	if first.Title != "release  is out & live" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Description != "bob: release  is out & live 🎉" {
		t.Errorf("description = %q", first.Description)
	}
	if !strings.Contains(first.Content, "&amp;") {
		t.Errorf("content not escaped: %q", first.Content)
	}
	if first.Link.Href != "https://discord.com/channels/7/42/11" {
		t.Errorf("item link = %q", first.Link.Href)
	}
	if feed.Items[1].Title != "Message from alice" {
		t.Errorf("empty message title = %q", feed.Items[1].Title)
	}
}

func TestGenerateFeed_NotPublished(t *testing.T) {
	svc := New(&config.Config{FeedChannels: []string{"1"}}, newStubRepo())

	_, err := svc.GenerateFeed(context.Background(), "42", "http://localhost")
	if !errors.Is(err, scribeErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRender(t *testing.T) {
	svc := New(&config.Config{FeedChannels: []string{"42"}}, newStubRepo())
	feed, err := svc.GenerateFeed(context.Background(), "42", "http://localhost")
	if err != nil {
		t.Fatalf("GenerateFeed: %v", err)
	}

	tests := []struct {
		format domain.Format
		marker string
	}{
		{domain.FormatRss, "<rss"},
		{domain.FormatAtom, "<feed"},
		{domain.FormatJson, `"version"`},
	}
	for _, tt := range tests {
		out, err := svc.Render(feed, tt.format)
		if err != nil {
			t.Fatalf("Render(%s): %v", tt.format, err)
		}
		if !strings.Contains(out, tt.marker) {
			t.Errorf("Render(%s) missing %q", tt.format, tt.marker)
		}
	}
}

func TestMessageLink_DirectMessage(t *testing.T) {
	got := MessageLink(&messageDomain.Channel{ID: "5"}, "6")
	if got != "https://discord.com/channels/@me/5/6" {
		t.Errorf("MessageLink = %q", got)
	}
}
