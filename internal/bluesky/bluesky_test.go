package bluesky

import (
	"strings"
	"testing"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
)

func TestNotificationID(t *testing.T) {
	t.Parallel()
	a := Notification{URI: "at://did:plc:x/app.bsky.feed.post/1", Reason: ReasonMention}
	b := Notification{URI: "at://did:plc:x/app.bsky.feed.post/1", Reason: ReasonReply}
	if a.ID() == b.ID() {
		t.Fatal("mention and reply for the same post must have distinct ids")
	}
	if !strings.Contains(a.ID(), a.URI) {
		t.Fatalf("ID %q should embed the URI", a.ID())
	}
}

func TestActionable(t *testing.T) {
	t.Parallel()
	for reason, want := range map[string]bool{
		ReasonMention: true,
		ReasonReply:   true,
		"like":        false,
		"follow":      false,
		"repost":      false,
		"":            false,
	} {
		if got := (Notification{Reason: reason}).Actionable(); got != want {
			t.Fatalf("Actionable(%q) = %v, want %v", reason, got, want)
		}
	}
}

func TestFromRawExtractsTextAndRoot(t *testing.T) {
	t.Parallel()
	raw := &appbsky.NotificationListNotifications_Notification{
		Uri:       "at://did:plc:eve/app.bsky.feed.post/2",
		Cid:       "cid2",
		Reason:    ReasonReply,
		IndexedAt: "2024-01-02T03:04:05Z",
		Record: &lexutil.LexiconTypeDecoder{Val: &appbsky.FeedPost{
			Text: "analyze @dora",
			Reply: &appbsky.FeedPost_ReplyRef{
				Root: &comatproto.RepoStrongRef{
					Uri: "at://did:plc:bot/app.bsky.feed.post/root",
					Cid: "cidroot",
				},
			},
		}},
	}
	n := fromRaw(raw)
	if n.Text != "analyze @dora" {
		t.Fatalf("Text = %q", n.Text)
	}
	if n.Root.URI != "at://did:plc:bot/app.bsky.feed.post/root" || n.Root.CID != "cidroot" {
		t.Fatalf("Root = %+v", n.Root)
	}
}

func TestFromRawWithoutPostRecord(t *testing.T) {
	t.Parallel()
	raw := &appbsky.NotificationListNotifications_Notification{
		Uri:    "at://did:plc:eve/app.bsky.graph.follow/1",
		Cid:    "cid1",
		Reason: "follow",
	}
	n := fromRaw(raw)
	if n.Text != "" {
		t.Fatalf("Text = %q, want empty", n.Text)
	}
	if n.Root.URI != raw.Uri {
		t.Fatalf("Root should fall back to the notification itself, got %+v", n.Root)
	}
}

func TestLinkFacetsByteOffsets(t *testing.T) {
	t.Parallel()
	text := "📊 Analysis ready for @dora.bsky.social\n\n🔗 https://x/y\n⏱ Expires in 24h"
	facets := linkFacets(text)
	if len(facets) != 1 {
		t.Fatalf("facets = %d, want 1", len(facets))
	}
	f := facets[0]
	got := text[f.Index.ByteStart:f.Index.ByteEnd]
	if got != "https://x/y" {
		t.Fatalf("facet slice = %q, want the URL", got)
	}
	if len(f.Features) != 1 || f.Features[0].RichtextFacet_Link == nil {
		t.Fatal("facet should carry exactly one link feature")
	}
	if f.Features[0].RichtextFacet_Link.Uri != "https://x/y" {
		t.Fatalf("link uri = %q", f.Features[0].RichtextFacet_Link.Uri)
	}
}

func TestLinkFacetsNone(t *testing.T) {
	t.Parallel()
	if facets := linkFacets("no links here"); facets != nil {
		t.Fatalf("facets = %v, want nil", facets)
	}
}
