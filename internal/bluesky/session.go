// Package bluesky wraps the atproto XRPC surface the bot needs: session
// login, notification listing, seen-cursor updates and reply posting.
package bluesky

import (
	"context"
	"fmt"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	logx "skylens/pkg/logx"
)

type Config struct {
	Host       string
	Identifier string
	Password   string

	// PostsPerMinute caps outgoing replies (the PDS enforces write rate
	// limits; better to wait locally than to burn the quota on 429s).
	PostsPerMinute int
}

// Session is an authenticated connection to a PDS.
type Session struct {
	cfg   Config
	xrpc  *xrpc.Client
	posts *rate.Limiter
	log   logx.Logger
}

func Dial(cfg Config, log logx.Logger) *Session {
	ua := "skylens/" + versioninfo.Short()
	perMinute := cfg.PostsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Session{
		cfg: cfg,
		xrpc: &xrpc.Client{
			Host:      cfg.Host,
			UserAgent: &ua,
		},
		posts: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		log:   log,
	}
}

// Login establishes the session. Must succeed before any other call.
func (s *Session) Login(ctx context.Context) error {
	out, err := comatproto.ServerCreateSession(ctx, s.xrpc, &comatproto.ServerCreateSession_Input{
		Identifier: s.cfg.Identifier,
		Password:   s.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("createSession: %w", err)
	}
	s.xrpc.Auth = &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
	s.log.Info("logged in", logx.String("handle", out.Handle), logx.String("did", out.Did))
	return nil
}

func (s *Session) ListNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	out, err := appbsky.NotificationListNotifications(ctx, s.xrpc, "", limit, false, nil, "")
	if err != nil {
		return nil, fmt.Errorf("listNotifications: %w", err)
	}
	notifs := make([]Notification, 0, len(out.Notifications))
	for _, raw := range out.Notifications {
		if raw == nil {
			continue
		}
		notifs = append(notifs, fromRaw(raw))
	}
	return notifs, nil
}

func (s *Session) UpdateSeen(ctx context.Context, indexedAt string) error {
	err := appbsky.NotificationUpdateSeen(ctx, s.xrpc, &appbsky.NotificationUpdateSeen_Input{
		SeenAt: indexedAt,
	})
	if err != nil {
		return fmt.Errorf("updateSeen: %w", err)
	}
	return nil
}

// Reply posts text threaded under the notifying post. Any URLs in the text
// get link facets so they render as tappable links.
func (s *Session) Reply(ctx context.Context, to Notification, text string) error {
	if err := s.posts.Wait(ctx); err != nil {
		return err
	}

	parent := &comatproto.RepoStrongRef{Uri: to.URI, Cid: to.CID}
	root := parent
	if to.Root.URI != "" && to.Root.URI != to.URI {
		root = &comatproto.RepoStrongRef{Uri: to.Root.URI, Cid: to.Root.CID}
	}

	post := &appbsky.FeedPost{
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Reply: &appbsky.FeedPost_ReplyRef{
			Root:   root,
			Parent: parent,
		},
		Facets: linkFacets(text),
	}

	_, err := comatproto.RepoCreateRecord(ctx, s.xrpc, &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       s.xrpc.Auth.Did,
		Record:     &lexutil.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return fmt.Errorf("createRecord: %w", err)
	}
	return nil
}

// fromRaw maps the lexicon notification onto the core-facing type, pulling
// the post text and thread root out of the embedded record when present.
func fromRaw(raw *appbsky.NotificationListNotifications_Notification) Notification {
	n := Notification{
		URI:       raw.Uri,
		CID:       raw.Cid,
		Reason:    raw.Reason,
		IndexedAt: raw.IndexedAt,
		IsRead:    raw.IsRead,
		Root:      Ref{URI: raw.Uri, CID: raw.Cid},
	}
	if raw.Author != nil {
		n.Author = Identity{Handle: raw.Author.Handle, DID: raw.Author.Did}
	}
	if raw.Record != nil {
		if post, ok := raw.Record.Val.(*appbsky.FeedPost); ok && post != nil {
			n.Text = post.Text
			if post.Reply != nil && post.Reply.Root != nil {
				n.Root = Ref{URI: post.Reply.Root.Uri, CID: post.Reply.Root.Cid}
			}
		}
	}
	return n
}
