// Package server serves the portfolio page and keeps each visitor's page
// state: the active section and the contact form.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vishwar23/portfolio/internal/config"
	"github.com/vishwar23/portfolio/internal/contact"
	"github.com/vishwar23/portfolio/internal/content"
	"github.com/vishwar23/portfolio/internal/logging"
	"github.com/vishwar23/portfolio/internal/section"
	"github.com/vishwar23/portfolio/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

const sweepInterval = time.Minute

// Server wires the page, the per-visitor state and the admin area together.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *store.DB
	portfolio *content.Portfolio
	relay     contact.Relay
	scheduler contact.Scheduler
	sessions  *sessions
	admin     *admin
	router    *gin.Engine

	// background tracks fire-and-forget analytics writes.
	background sync.WaitGroup
}

// Option adjusts a Server before its routes are built.
type Option func(*Server)

// WithRelay replaces the relay chosen from configuration.
func WithRelay(r contact.Relay) Option {
	return func(s *Server) { s.relay = r }
}

// WithScheduler replaces the timer source of every contact form.
func WithScheduler(sch contact.Scheduler) Option {
	return func(s *Server) { s.scheduler = sch }
}

func New(cfg *config.Config, logger *zap.Logger, db *store.DB, portfolio *content.Portfolio, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		portfolio: portfolio,
		scheduler: contact.RealTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.relay == nil {
		s.relay = NewRelay(cfg, logger)
	}

	s.sessions = newSessions(s.newSession)

	admin, err := newAdmin(cfg, logger, db)
	if err != nil {
		return nil, err
	}
	s.admin = admin

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s.router = s.routes(tmpl)
	return s, nil
}

// NewRelay picks the contact relay: the hosted form relay unless RELAY=smtp
// and SMTP credentials are set.
func NewRelay(cfg *config.Config, logger *zap.Logger) contact.Relay {
	if strings.EqualFold(cfg.Relay, "smtp") {
		if cfg.SMTP.Configured() {
			return contact.NewSMTPRelay(cfg.SMTP, logger.Named("smtp"))
		}
		logger.Warn("RELAY=smtp but SMTP credentials are not configured, using the form relay")
	}
	return contact.NewHTTPRelay(cfg.FormEndpoint, cfg.RelayTimeout)
}

func (s *Server) newSession(id string) *Session {
	return &Session{
		ID:      id,
		Tracker: section.NewTracker(s.cfg.SectionThreshold),
		Contact: contact.New(contact.Options{
			Storage:   s.db.Drafts(id),
			Relay:     s.relay,
			Scheduler: s.scheduler,
			// No Clipboard: the visitor's browser copies and reports back
			// through handleCopy.
			Logger: s.logger.With(zap.String("session", s.admin.hash(id))),
		}),
	}
}

func (s *Server) routes(tmpl *template.Template) *gin.Engine {
	r := gin.New()
	r.Use(logging.Middleware(s.logger), gin.Recovery())
	r.SetHTMLTemplate(tmpl)

	r.Static("/images", s.cfg.StaticDir+"/images")
	r.Static("/static", s.cfg.StaticDir)

	r.Use(s.admin.visitorTracking(s.goBackground))

	r.GET("/", s.handleIndex)

	r.POST("/sections/layout", s.handleLayout)
	r.POST("/sections/scroll", s.handleScroll)

	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact/field", s.handleField)
	r.POST("/contact", s.handleSubmit)
	r.GET("/contact/status", s.handleStatus)
	r.POST("/contact/copy", s.handleCopy)
	r.GET("/contact/copy", s.handleCopyStatus)

	s.admin.routes(r, s.goBackground)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// goBackground runs f detached from the request; Close waits for it.
func (s *Server) goBackground(f func(ctx context.Context)) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		f(ctx)
	}()
}

// Run serves until ctx is cancelled, sweeping idle sessions meanwhile.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Portfolio listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := s.sessions.sweep(s.cfg.SessionIdle); n > 0 {
					s.logger.Debug("Swept idle sessions", zap.Int("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.Close()
	return err
}

// Close tears down every session and waits for pending analytics writes.
func (s *Server) Close() {
	s.sessions.closeAll()
	s.background.Wait()
}
