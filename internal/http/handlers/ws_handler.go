package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/auth"
	"github.com/gorsocial/backend/internal/cache"
	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/services"
)

// WSHub upgrades authenticated websocket connections into sync
// sessions. Each session owns a ClientCache and keeps it current by
// re-querying whenever the change bus signals one of its tables;
// change events carry keys only, never record data, so a refresh is
// always a full fetch of the affected subset.
type WSHub struct {
	bus       *events.Bus
	social    *services.SocialService
	notifier  *services.Notifier
	wallets   services.WalletStore
	jwtSecret string
	log       *zap.Logger
}

func NewWSHub(
	bus *events.Bus,
	social *services.SocialService,
	notifier *services.Notifier,
	wallets services.WalletStore,
	jwtSecret string,
	log *zap.Logger,
) *WSHub {
	return &WSHub{
		bus:       bus,
		social:    social,
		notifier:  notifier,
		wallets:   wallets,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// WSUpgradeMiddleware rejects plain HTTP requests on the ws route.
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// session is one connection's view: its cache, its bus subscriptions,
// and a write lock so concurrent refreshes never interleave frames.
type session struct {
	hub     *WSHub
	conn    *websocket.Conn
	address string
	cache   *cache.ClientCache
	writeMu sync.Mutex
	cancels []func()
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}
	claims, err := auth.ParseJWT(h.jwtSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	s := &session{
		hub:     h,
		conn:    conn,
		address: claims.WalletAddress,
		cache:   cache.NewClientCache(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.subscribe(ctx); err != nil {
		h.log.Error("ws subscribe failed", zap.Error(err))
		conn.Close()
		return
	}
	defer s.teardown()

	// Seed the cache before any signal arrives so the first frames the
	// client sees are a complete snapshot.
	s.refreshPosts(ctx)
	s.refreshWallet(ctx)
	s.refreshProfile(ctx)
	s.refreshNotifications(ctx)

	// Read loop for keepalive; the client sends nothing we act on.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *session) subscribe(ctx context.Context) error {
	subs := []struct {
		table     string
		keyFilter string
		refresh   func(context.Context)
	}{
		{events.TablePosts, "", s.refreshPosts},
		{events.TableComments, "", s.refreshPosts},
		{events.TableWallets, s.address, s.refreshWallet},
		{events.TableProfiles, s.address, s.refreshProfile},
		{events.TableNotifications, s.address, s.refreshNotifications},
	}
	for _, sub := range subs {
		refresh := sub.refresh
		cancel, err := s.hub.bus.Subscribe(sub.table, sub.keyFilter, func(events.Change) {
			refresh(ctx)
		})
		if err != nil {
			return err
		}
		s.cancels = append(s.cancels, cancel)
	}
	return nil
}

func (s *session) teardown() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.conn.Close()
}

func (s *session) refreshPosts(ctx context.Context) {
	posts, err := s.hub.social.ListFeed(ctx, defaultFeedLimit)
	if err != nil {
		s.hub.log.Warn("ws feed refresh failed", zap.Error(err))
		return
	}
	s.cache.ReplacePosts(posts)
	s.push(wsMessage{Type: "posts", Payload: s.cache.Posts()})
}

func (s *session) refreshWallet(ctx context.Context) {
	wallet, err := s.hub.wallets.Get(ctx, s.address)
	if err != nil {
		s.hub.log.Warn("ws wallet refresh failed", zap.Error(err))
		return
	}
	s.cache.ReplaceWallet(*wallet)
	if snapshot, ok := s.cache.Wallet(); ok {
		s.push(wsMessage{Type: "wallet", Payload: snapshot})
	}
}

func (s *session) refreshProfile(ctx context.Context) {
	profile, err := s.hub.social.EnsureProfile(ctx, s.address)
	if err != nil {
		s.hub.log.Warn("ws profile refresh failed", zap.Error(err))
		return
	}
	s.cache.ReplaceProfile(*profile)
	if snapshot, ok := s.cache.Profile(s.address); ok {
		s.push(wsMessage{Type: "profile", Payload: snapshot})
	}
}

func (s *session) refreshNotifications(ctx context.Context) {
	list, err := s.hub.notifier.List(ctx, s.address, 50)
	if err != nil {
		s.hub.log.Warn("ws notifications refresh failed", zap.Error(err))
		return
	}
	s.cache.ReplaceNotifications(list)
	s.push(wsMessage{Type: "notifications", Payload: s.cache.Notifications()})
}

func (s *session) push(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, data)
}
