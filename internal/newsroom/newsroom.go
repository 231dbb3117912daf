// Package newsroom coordinates the ownership gate, the upload gate and the
// stores so the HTML and JSON surfaces share one set of content rules.
package newsroom

import (
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/newswire/internal/metrics"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/upload"
)

var (
	// ErrForbidden is returned when the acting user may not mutate a record.
	ErrForbidden = errors.New("forbidden")

	// ErrSelfDelete is returned when an administrator tries to delete their
	// own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
)

// Logical upload folders.
const (
	FolderNews     = "News"
	FolderProfiles = "Profiles"
	FolderTeam     = "TeamMembers"
)

// Defaults are the shared placeholder images used when a record has no
// upload of its own. Each path must contain the gate's default marker.
type Defaults struct {
	NewsImage string
	Avatar    string
	TeamImage string
}

type Service struct {
	users      *store.UserStore
	categories *store.CategoryStore
	news       *store.NewsStore
	favorites  *store.FavoriteStore
	team       *store.TeamMemberStore
	stats      *store.StatsStore

	gate     *upload.Gate
	defaults Defaults
	views    chan<- store.ViewEvent
	logger   *slog.Logger
}

// New builds a Service over db. Article views are sent to views without
// blocking; a nil channel disables view tracking.
func New(db *sqlx.DB, gate *upload.Gate, defaults Defaults, views chan<- store.ViewEvent, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      store.NewUserStore(db),
		categories: store.NewCategoryStore(db),
		news:       store.NewNewsStore(db),
		favorites:  store.NewFavoriteStore(db),
		team:       store.NewTeamMemberStore(db),
		stats:      store.NewStatsStore(db),
		gate:       gate,
		defaults:   defaults,
		views:      views,
		logger:     logger,
	}
}

// Defaults returns the placeholder image paths.
func (s *Service) Defaults() Defaults { return s.defaults }

// authorize runs the ownership gate and records the decision.
func (s *Service) authorize(actor store.ActingUser, rec store.Authored, action, id string) error {
	if store.CanMutate(actor, rec) {
		metrics.AuthzDecisionsTotal.WithLabelValues("allow").Inc()
		return nil
	}
	metrics.AuthzDecisionsTotal.WithLabelValues("deny").Inc()
	s.logger.Info("mutation denied", "actor", actor.ID, "action", action, "id", id)
	return ErrForbidden
}
