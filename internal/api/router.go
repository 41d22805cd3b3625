package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/api/handlers"
	"github.com/pitchside/server/internal/api/middleware"
	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/config"
	"github.com/pitchside/server/internal/metrics"
	"github.com/pitchside/server/web"
)

// UserService is what the auth routes and Protect need from the users
// domain.
type UserService interface {
	handlers.UserService
	middleware.UserLoader
}

// Services are the domain services exposed over HTTP.
type Services struct {
	Teams       handlers.TeamService
	Roster      handlers.RosterService
	Players     handlers.PlayerService
	Matches     handlers.MatchService
	Tournaments handlers.TournamentService
	Users       UserService
}

type Options struct {
	Config    config.Config
	Logger    zerolog.Logger
	Services  Services
	Tokens    *auth.JWTManager
	Denylist  *auth.Denylist
	Health    *handlers.HealthChecker
	Version   string
	GitCommit string
	BuildDate string
}

// Router is the assembled HTTP handler plus the pieces the server must stop
// on shutdown.
type Router struct {
	Handler     http.Handler
	RateLimiter *middleware.RateLimiter
}

func NewRouter(opts Options) (*Router, error) {
	cfg := opts.Config
	env := cfg.Environment

	csrfKey := []byte(cfg.Auth.CSRFKey)
	if len(csrfKey) == 0 {
		derived, err := auth.DeriveCSRFKey([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("derive csrf key: %w", err)
		}
		csrfKey = derived
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Server.TrustedProxyCIDRs)
	authLimit := limiter.Limit(middleware.TierAuth)
	protect := middleware.Protect(opts.Tokens, opts.Denylist, opts.Services.Users, env)
	csrfCheck := middleware.CSRF(csrfKey, cfg.Auth.CookieSecure)

	// mutate guards every write: authenticate first, then CSRF for cookie
	// sessions.
	mutate := func(h http.HandlerFunc) http.Handler {
		return protect(csrfCheck(h))
	}

	teamsH := handlers.NewTeamsHandler(opts.Services.Teams, opts.Services.Roster, env)
	playersH := handlers.NewPlayersHandler(opts.Services.Players, env)
	matchesH := handlers.NewMatchesHandler(opts.Services.Matches, env)
	tournamentsH := handlers.NewTournamentsHandler(opts.Services.Tournaments, env)
	authH := handlers.NewAuthHandler(opts.Services.Users, opts.Tokens, opts.Denylist, cfg.Auth.CookieSecure, env)

	mux := http.NewServeMux()

	mux.Handle("GET /{$}", web.IndexHandler())
	mux.Handle("GET /robots.txt", web.RobotsTxtHandler())
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	if opts.Health != nil {
		mux.Handle("GET /health", opts.Health.Health())
		mux.Handle("GET /readyz", opts.Health.Readyz())
	}
	mux.Handle("GET /version", VersionHandler(opts.Version, opts.GitCommit, opts.BuildDate))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /api/openapi.json", OpenAPIHandler())

	// Auth. Credential endpoints share the hourly limit.
	mux.Handle("POST /api/auth/register", authLimit(http.HandlerFunc(authH.Register)))
	mux.Handle("POST /api/auth/login", authLimit(http.HandlerFunc(authH.Login)))
	mux.Handle("POST /api/auth/forgotpassword", authLimit(http.HandlerFunc(authH.ForgotPassword)))
	mux.Handle("PUT /api/auth/resetpassword/{token}", authLimit(http.HandlerFunc(authH.ResetPassword)))
	mux.Handle("PUT /api/auth/updatepassword", authLimit(mutate(authH.UpdatePassword)))
	mux.Handle("PUT /api/auth/updatedetails", mutate(authH.UpdateDetails))
	mux.Handle("DELETE /api/auth/deleteme", mutate(authH.DeleteMe))
	mux.Handle("GET /api/auth/me", protect(http.HandlerFunc(authH.Me)))
	mux.Handle("GET /api/auth/logout", protect(http.HandlerFunc(authH.Logout)))
	mux.Handle("GET /api/auth/csrf", middleware.CSRFIssuer(csrfKey, cfg.Auth.CookieSecure)(http.HandlerFunc(authH.CSRF)))

	// Teams
	mux.HandleFunc("GET /api/teams", teamsH.List)
	mux.HandleFunc("GET /api/teams/{id}", teamsH.Get)
	mux.HandleFunc("GET /api/teams/{id}/stats", teamsH.Stats)
	mux.Handle("POST /api/teams", mutate(teamsH.Create))
	mux.Handle("PUT /api/teams/{id}", mutate(teamsH.Update))
	mux.Handle("DELETE /api/teams/{id}", mutate(teamsH.Delete))
	mux.Handle("POST /api/teams/{id}/players", mutate(teamsH.AddPlayer))
	mux.Handle("DELETE /api/teams/{id}/players/{playerId}", mutate(teamsH.RemovePlayer))

	// Players
	mux.Handle("GET /api/players", playersH.List())
	mux.HandleFunc("GET /api/players/{id}", playersH.Get)
	mux.HandleFunc("GET /api/players/{id}/stats", playersH.Stats)
	mux.Handle("GET /api/players/search/role/{role}", playersH.ByRole())
	mux.Handle("GET /api/players/search/team/{teamId}", playersH.ByTeam())
	mux.Handle("GET /api/players/stats/top-scorers", playersH.TopScorers())
	mux.Handle("GET /api/players/stats/top-wicket-takers", playersH.TopWicketTakers())
	mux.Handle("GET /api/players/stats/all-rounders", playersH.AllRounders())
	mux.Handle("POST /api/players", mutate(playersH.Create))
	mux.Handle("PUT /api/players/{id}", mutate(playersH.Update))
	mux.Handle("DELETE /api/players/{id}", mutate(playersH.Delete))
	mux.Handle("PUT /api/players/{id}/stats", mutate(playersH.UpdateStats))

	// Matches
	mux.Handle("GET /api/matches", matchesH.List())
	mux.HandleFunc("GET /api/matches/{id}", matchesH.Get)
	mux.Handle("GET /api/matches/schedule", matchesH.Schedule())
	mux.Handle("GET /api/matches/live", matchesH.Live())
	mux.Handle("GET /api/matches/recent", matchesH.Recent())
	mux.Handle("GET /api/matches/upcoming", matchesH.Upcoming())
	mux.Handle("GET /api/matches/{a}/{b}", subroutes{
		collections: map[string]collection{
			"status":     {param: "status", handler: matchesH.ByStatus()},
			"type":       {param: "type", handler: matchesH.ByType()},
			"venue":      {param: "venue", handler: matchesH.ByVenue()},
			"tournament": {param: "id", handler: matchesH.ByTournament()},
			"team":       {param: "id", handler: matchesH.ByTeam()},
		},
		children: map[string]http.Handler{
			"stats": http.HandlerFunc(matchesH.Stats),
		},
		env: env,
	})
	mux.Handle("POST /api/matches", mutate(matchesH.Create))
	mux.Handle("PUT /api/matches/{id}", mutate(matchesH.Update))
	mux.Handle("DELETE /api/matches/{id}", mutate(matchesH.Delete))
	mux.Handle("PUT /api/matches/{id}/score", mutate(matchesH.UpdateScore))

	// Tournaments
	mux.Handle("GET /api/tournaments", tournamentsH.List())
	mux.HandleFunc("GET /api/tournaments/{id}", tournamentsH.Get)
	mux.Handle("GET /api/tournaments/schedule", tournamentsH.Between())
	mux.Handle("GET /api/tournaments/active", tournamentsH.Active())
	mux.Handle("GET /api/tournaments/upcoming", tournamentsH.Upcoming())
	mux.Handle("GET /api/tournaments/registration-open", tournamentsH.RegistrationOpen())
	mux.Handle("GET /api/tournaments/{a}/{b}", subroutes{
		collections: map[string]collection{
			"status": {param: "status", handler: tournamentsH.ByStatus()},
			"format": {param: "format", handler: tournamentsH.ByFormat()},
			"season": {param: "season", handler: tournamentsH.BySeason()},
			"team":   {param: "teamId", handler: tournamentsH.ByTeam()},
		},
		children: map[string]http.Handler{
			"stats":        http.HandlerFunc(tournamentsH.Stats),
			"points-table": http.HandlerFunc(tournamentsH.PointsTable),
			"schedule":     http.HandlerFunc(tournamentsH.Schedule),
		},
		env: env,
	})
	mux.Handle("POST /api/tournaments", mutate(tournamentsH.Create))
	mux.Handle("PUT /api/tournaments/{id}", mutate(tournamentsH.Update))
	mux.Handle("DELETE /api/tournaments/{id}", mutate(tournamentsH.Delete))
	mux.Handle("POST /api/tournaments/{id}/teams", mutate(tournamentsH.Register))
	mux.Handle("PUT /api/tournaments/{id}/teams/{teamId}", mutate(tournamentsH.SetEntryStatus))

	// Outermost first. Nothing between Tracing and the mux may replace the
	// request, or the matched pattern is lost to the span and metrics.
	var handler http.Handler = mux
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = limiter.Limit(middleware.TierPublic)(handler)
	handler = middleware.CORS(cfg.CORS)(handler)
	handler = middleware.SecurityHeaders(cfg.IsProduction())(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.RequestLogging(handler)
	handler = middleware.CorrelationID(opts.Logger)(handler)

	return &Router{Handler: handler, RateLimiter: limiter}, nil
}

type collection struct {
	param   string
	handler http.Handler
}

// subroutes serves GET /prefix/{a}/{b}. ServeMux rejects
// /matches/status/{status} next to /matches/{id}/stats as conflicting, so
// both shapes share one pattern: a known collection name in the first
// segment wins, otherwise the first segment is a resource id.
type subroutes struct {
	collections map[string]collection
	children    map[string]http.Handler
	env         string
}

func (s subroutes) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a, b := r.PathValue("a"), r.PathValue("b")
	if c, ok := s.collections[a]; ok {
		r.SetPathValue(c.param, b)
		c.handler.ServeHTTP(w, r)
		return
	}
	if h, ok := s.children[b]; ok {
		r.SetPathValue("id", a)
		h.ServeHTTP(w, r)
		return
	}
	problem.Write(w, r, http.StatusNotFound, "Route not found", nil, s.env)
}
