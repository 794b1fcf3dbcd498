// Package server renders the DealSpot screens and keeps each session's
// open screens in sync.
package server

import (
	"context"
	"dealspot-web/api"
	"dealspot-web/auth"
	"dealspot-web/cache"
	"dealspot-web/favorites"
	"dealspot-web/geo"
	"dealspot-web/pkg/deals"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/justinas/alice"
	"github.com/rs/cors"
)

//go:embed tmpl/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Catalog serves restaurants, deals and favorites.
type Catalog interface {
	favorites.Remote
	Restaurants(ctx context.Context, token string, q api.ListQuery) ([]*deals.Restaurant, error)
	Restaurant(ctx context.Context, token string, id int64) (*deals.Restaurant, error)
	Deals(ctx context.Context, token string, q api.ListQuery) ([]*deals.Deal, error)
	Deal(ctx context.Context, token string, id int64) (*deals.Deal, error)
}

// Reviews handles ratings, tags and comment reports.
type Reviews interface {
	CreateRating(ctx context.Context, token string, restaurantID int64, in api.RatingInput) (*deals.Rating, error)
	UpdateRating(ctx context.Context, token string, ratingID int64, in api.RatingInput) (*deals.Rating, error)
	ReviewTags(ctx context.Context, token string) ([]deals.ReviewTag, error)
	CreateReviewTag(ctx context.Context, token, name string) (*deals.ReviewTag, error)
	ReportComment(ctx context.Context, token string, commentID int64, reason string) error
	HasReported(ctx context.Context, token string, commentID int64) (bool, error)
}

// Moderation handles the admin console and suspension disputes.
type Moderation interface {
	Reports(ctx context.Context, token string) ([]*deals.CommentReport, error)
	DeleteComment(ctx context.Context, token string, commentID int64) error
	DismissReport(ctx context.Context, token string, reportID int64) error
	Bans(ctx context.Context, token string) ([]*deals.Ban, error)
	BanUser(ctx context.Context, token, userID, reason string) error
	UnbanUser(ctx context.Context, token, userID string) error
	SubmitDispute(ctx context.Context, token, message string) (*deals.Dispute, error)
}

// Partner handles restaurant, menu and deal management.
type Partner interface {
	MyRestaurants(ctx context.Context, token string) ([]*deals.Restaurant, error)
	CreateRestaurant(ctx context.Context, token string, in api.RestaurantInput) (*deals.Restaurant, error)
	UpdateRestaurant(ctx context.Context, token string, id int64, in api.RestaurantInput) (*deals.Restaurant, error)
	DeleteRestaurant(ctx context.Context, token string, id int64) error
	CreateMenuSection(ctx context.Context, token string, restaurantID int64, in api.MenuSectionInput) (*deals.MenuSection, error)
	UpdateMenuSection(ctx context.Context, token string, id int64, in api.MenuSectionInput) (*deals.MenuSection, error)
	DeleteMenuSection(ctx context.Context, token string, id int64) error
	CreateMenuItem(ctx context.Context, token string, sectionID int64, in api.MenuItemInput) (*deals.MenuItem, error)
	UpdateMenuItem(ctx context.Context, token string, id int64, in api.MenuItemInput) (*deals.MenuItem, error)
	DeleteMenuItem(ctx context.Context, token string, id int64) error
	CreateDeal(ctx context.Context, token string, restaurantID int64, in api.DealInput) (*deals.Deal, error)
	UpdateDeal(ctx context.Context, token string, id int64, in api.DealInput) (*deals.Deal, error)
	DeleteDeal(ctx context.Context, token string, id int64) error
}

// Backend is everything the screens need from the backend API.
type Backend interface {
	Catalog
	Reviews
	Moderation
	Partner
}

// Geocoder resolves addresses and coordinates.
type Geocoder interface {
	Search(ctx context.Context, text string) ([]geo.Place, error)
	Reverse(ctx context.Context, c geo.Coordinate) (*geo.Place, error)
}

// Config holds server configuration.
type Config struct {
	Backend        Backend
	Geocoder       Geocoder
	Verifier       auth.Verifier
	Cache          *cache.Cache
	Logger         *slog.Logger
	AppName        string
	AppVersion     string
	AllowedOrigins []string
	Location       *time.Location
	DevAuth        bool
}

// Server handles HTTP requests.
type Server struct {
	backend  Backend
	geocoder Geocoder
	verifier auth.Verifier
	cache    *cache.Cache
	logger   *slog.Logger
	sessions *sessionStore
	validate *validator.Validate
	limiter  *rateLimiter
	pages    *pages
	origins  []string
	loc      *time.Location
	appName  string
	version  string
	devAuth  bool
	now      func() time.Time
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		backend:  cfg.Backend,
		geocoder: cfg.Geocoder,
		verifier: cfg.Verifier,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		sessions: newSessionStore(cfg.Backend, cfg.Logger),
		validate: newValidator(),
		limiter:  newRateLimiter(10, time.Minute),
		origins:  cfg.AllowedOrigins,
		loc:      loc,
		appName:  cfg.AppName,
		version:  cfg.AppVersion,
		devAuth:  cfg.DevAuth,
		now:      time.Now,
	}
	s.pages = newPages(s.now)
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/restaurants", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /suspended", s.signedIn(s.handleSuspended))
	mux.HandleFunc("POST /disputes", s.signedIn(s.handleDispute))

	mux.HandleFunc("GET /restaurants", s.customer(s.handleRestaurants))
	mux.HandleFunc("GET /restaurants/{id}", s.customer(s.handleRestaurant))
	mux.HandleFunc("POST /restaurants/{id}/bookmark", s.customer(s.handleToggle(deals.TypeRestaurant)))
	mux.HandleFunc("POST /restaurants/{id}/ratings", s.customer(s.handleRating))
	mux.HandleFunc("GET /deals", s.customer(s.handleDeals))
	mux.HandleFunc("GET /deals/{id}", s.customer(s.handleDeal))
	mux.HandleFunc("POST /deals/{id}/favorite", s.customer(s.handleToggle(deals.TypeDeal)))
	mux.HandleFunc("GET /favorites", s.customer(s.handleFavorites))
	mux.HandleFunc("POST /favorites/refresh", s.customer(s.handleRefresh))
	mux.HandleFunc("POST /comments/{id}/report", s.customer(s.handleReport))
	mux.HandleFunc("POST /location", s.customer(s.handleLocation))
	mux.HandleFunc("POST /location/reverse", s.customer(s.handleReverseLocation))
	mux.HandleFunc("POST /location/clear", s.customer(s.handleClearLocation))
	mux.HandleFunc("GET /events", s.customer(s.handleEvents))

	mux.HandleFunc("GET /partner", s.partner(s.handlePartner))
	mux.HandleFunc("GET /partner/restaurants/new", s.partner(s.handleNewRestaurant))
	mux.HandleFunc("POST /partner/restaurants", s.partner(s.handleCreateRestaurant))
	mux.HandleFunc("GET /partner/restaurants/{id}", s.partner(s.handleEditRestaurant))
	mux.HandleFunc("POST /partner/restaurants/{id}", s.partner(s.handleUpdateRestaurant))
	mux.HandleFunc("POST /partner/restaurants/{id}/delete", s.partner(s.handleDeleteRestaurant))
	mux.HandleFunc("POST /partner/restaurants/{id}/sections", s.partner(s.handleCreateSection))
	mux.HandleFunc("POST /partner/sections/{id}", s.partner(s.handleUpdateSection))
	mux.HandleFunc("POST /partner/sections/{id}/delete", s.partner(s.handleDeleteSection))
	mux.HandleFunc("POST /partner/sections/{id}/items", s.partner(s.handleCreateItem))
	mux.HandleFunc("POST /partner/items/{id}", s.partner(s.handleUpdateItem))
	mux.HandleFunc("POST /partner/items/{id}/delete", s.partner(s.handleDeleteItem))
	mux.HandleFunc("POST /partner/restaurants/{id}/deals", s.partner(s.handleCreateDeal))
	mux.HandleFunc("POST /partner/deals/{id}", s.partner(s.handleUpdateDeal))
	mux.HandleFunc("POST /partner/deals/{id}/delete", s.partner(s.handleDeleteDeal))

	mux.HandleFunc("GET /admin", s.admin(s.handleAdmin))
	mux.HandleFunc("POST /admin/bans", s.admin(s.handleBan))
	mux.HandleFunc("POST /admin/users/{id}/unban", s.admin(s.handleUnban))
	mux.HandleFunc("POST /admin/comments/{id}/delete", s.admin(s.handleDeleteComment))
	mux.HandleFunc("POST /admin/reports/{id}/dismiss", s.admin(s.handleDismissReport))

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("create static sub-filesystem: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.renderNotFound(w, r, s.sessions.lookup(r))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Accept", "Content-Type", "X-Requested-With"},
	})

	return alice.New(s.recoverPanic, s.logRequests, securityHeaders, c.Handler).Then(mux), nil
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	// Configure server with timeouts to prevent resource exhaustion.
	// The event stream clears its own write deadline.
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"status":"healthy","version":%q,"sessions":%d}`, s.version, s.sessions.count()); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}
