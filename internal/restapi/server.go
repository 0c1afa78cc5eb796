// Package restapi implements the REST control plane (C7, spec.md §4.7):
// bearer-token auth derived from a shared password, and the endpoint
// taxonomy that lets an external operator or peer reflect into the
// site controllers (C4), the affiliation/grant registry (C5), and the
// peer network transport (C6). Grounded on the sibling repeater-network
// codebase's internal/http package — gin.Engine construction,
// otelgin/CORS/pprof middleware wiring, and the errgroup-friendly
// Server/Start/Stop lifecycle — generalized from a session-cookie web
// dashboard into a stateless bearer-token JSON API, per SPEC_FULL.md
// §4.7A's framework-choice resolution.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fnecore/corehost/internal/config"
	"github.com/fnecore/corehost/internal/lookup"
	"github.com/fnecore/corehost/internal/peernet"
	"github.com/fnecore/corehost/internal/protoconst"
	"github.com/fnecore/corehost/internal/registry"
	"github.com/fnecore/corehost/internal/site"
	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const defaultAuthTokenTTL = 15 * time.Minute

// SiteBinding is one configured site's REST-reachable collaborators.
type SiteBinding struct {
	Protocol   protoconst.Protocol
	Controller *site.Controller
	Registry   *registry.Registry
	ACL        lookup.RadioACL
}

// Server is the REST control plane's HTTP listener.
type Server struct {
	log     *slog.Logger
	cfg     config.REST
	sites   map[protoconst.Protocol]*SiteBinding
	peers   *peernet.Server
	tgRules lookup.TalkgroupRules

	tokens *tokenStore

	version string
	commit  string
	start   time.Time
	onKill  func()

	engine     *gin.Engine
	httpServer *http.Server
}

// New builds a Server bound to the given sites, optional peer network
// (nil if disabled), and lookup tables. onKill is invoked by PUT /kill
// after the response is written, per spec.md §5's global-kill-flag
// shutdown sequence; it may be nil in tests.
func New(log *slog.Logger, cfg config.REST, sites []*SiteBinding, peers *peernet.Server, tgRules lookup.TalkgroupRules, version, commit string, onKill func()) *Server {
	ttl := cfg.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultAuthTokenTTL
	}

	byProtocol := make(map[protoconst.Protocol]*SiteBinding, len(sites))
	for _, s := range sites {
		byProtocol[s.Protocol] = s
	}

	srv := &Server{
		log:     log,
		cfg:     cfg,
		sites:   byProtocol,
		peers:   peers,
		tgRules: tgRules,
		tokens:  newTokenStore(cfg.Password, ttl),
		version: version,
		commit:  commit,
		start:   time.Now(),
		onKill:  onKill,
	}
	srv.engine = srv.buildEngine()
	return srv
}

// Engine exposes the underlying gin.Engine, primarily for tests driving
// requests with httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("corehostd-restapi"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = len(s.cfg.CORSOrigins) == 0
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, authHeader)
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	if s.cfg.PProf {
		pprof.Register(r)
	}

	limiterStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(limiterStore, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			writeError(c, http.StatusTooManyRequests, fmt.Sprintf("rate limited, retry in %s", time.Until(info.ResetTime)))
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	r.PUT("/auth", limiter, s.handleAuth)
	registerRoutes(r, s)
	return r
}

// ListenAndServe binds and serves the REST control plane until ctx is
// canceled, at which point it shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("REST control plane listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting new connections immediately, for the PUT
// /kill handler's orderly-shutdown sequence.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) binding(proto protoconst.Protocol) (*SiteBinding, bool) {
	b, ok := s.sites[proto]
	return b, ok
}

// soleBinding returns the only configured site when exactly one is
// bound, for endpoints whose request body omits an explicit protocol.
func (s *Server) soleBinding() (*SiteBinding, bool) {
	if len(s.sites) != 1 {
		return nil, false
	}
	for _, b := range s.sites {
		return b, true
	}
	return nil, false
}
