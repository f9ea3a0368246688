// Package server wires the HTTP surface, the chat channel loop, and the
// intent sweep into one process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/akihq/aki/ai/companion"
	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/internal/profile"
	"github.com/akihq/aki/plugin/chat_apps"
	"github.com/akihq/aki/plugin/chat_apps/channels"
	"github.com/akihq/aki/server/service/intent"
	"github.com/akihq/aki/store"
)

// TurnEngine runs one conversation turn.
type TurnEngine interface {
	ProcessTurn(ctx context.Context, userID int32, text string) (*companion.TurnResult, error)
}

// UserStore resolves platform identities to users.
type UserStore interface {
	UpsertUser(ctx context.Context, upsert *store.UpsertUser) (*store.User, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// Server owns the process's long-running loops.
type Server struct {
	profile  *profile.Profile
	users    UserStore
	engine   TurnEngine
	intents  *intent.Service
	channel  channels.ChatChannel // nil when no chat platform is configured
	exporter *metrics.Exporter

	echoServer *echo.Echo
	cron       *cron.Cron
}

func New(p *profile.Profile, users UserStore, engine TurnEngine, intents *intent.Service, channel channels.ChatChannel, exporter *metrics.Exporter) *Server {
	s := &Server{
		profile:  p,
		users:    users,
		engine:   engine,
		intents:  intents,
		channel:  channel,
		exporter: exporter,
		cron:     cron.New(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	e.POST("/api/v1/users/:id/turns", s.postTurn)

	s.echoServer = e
	return s
}

// Start runs the HTTP server, the chat channel loop, and the intent sweep
// until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.profile.IntentSweepSpec, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.intents.SweepDueIntents(sweepCtx); err != nil {
			slog.Error("intent sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep spec %q: %w", s.profile.IntentSweepSpec, err)
	}
	s.cron.Start()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
		if s.profile.UNIXSock != "" {
			// A socket file left behind by an unclean shutdown blocks the bind.
			if err := os.Remove(s.profile.UNIXSock); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove stale socket %s: %w", s.profile.UNIXSock, err)
			}
			listener, err := net.Listen("unix", s.profile.UNIXSock)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", s.profile.UNIXSock, err)
			}
			s.echoServer.Listener = listener
			slog.Info("http server listening", "socket", s.profile.UNIXSock)
		} else {
			slog.Info("http server listening", "addr", addr)
		}
		if err := s.echoServer.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if s.channel != nil {
		g.Go(func() error {
			slog.Info("chat channel listening", "platform", s.channel.Name())
			if err := s.channel.Listen(ctx, s.handleIncoming); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return nil
	})

	return g.Wait()
}

// Shutdown stops the loops. Safe to call more than once.
func (s *Server) Shutdown() {
	<-s.cron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			slog.Error("channel close failed", "error", err)
		}
	}
}

// handleIncoming is the channel-side turn handler: resolve the platform
// identity to a user, then run the turn.
func (s *Server) handleIncoming(ctx context.Context, msg *chat_apps.IncomingMessage) (*chat_apps.TurnReply, error) {
	user, err := s.users.UpsertUser(ctx, &store.UpsertUser{
		PlatformID: msg.PlatformUserID,
		Name:       msg.Name,
		Username:   msg.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	result, err := s.engine.ProcessTurn(ctx, user.ID, msg.Content)
	if err != nil {
		return nil, err
	}
	return &chat_apps.TurnReply{Messages: result.Messages, Reaction: result.Reaction}, nil
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "Service ready.")
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Messages []string `json:"messages"`
	Reaction string   `json:"reaction,omitempty"`
}

// postTurn routes a turn through the engine for callers outside the chat
// platform, like a local dashboard or curl.
func (s *Server) postTurn(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req turnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	userID := int32(id)
	if user, err := s.users.GetUser(c.Request().Context(), &store.FindUser{ID: &userID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	} else if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	result, err := s.engine.ProcessTurn(c.Request().Context(), userID, req.Text)
	if err != nil {
		slog.Error("turn failed", "user_id", userID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "turn failed")
	}

	return c.JSON(http.StatusOK, turnResponse{Messages: result.Messages, Reaction: result.Reaction})
}
