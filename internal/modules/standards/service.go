package standards

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/events"
)

// Service exposes registry operations and announces newly published
// standard versions on the event bus, which drives the batch
// re-evaluation fan-out.
type Service struct {
	repo    *Repository
	eventMgr *events.Manager
	log     zerolog.Logger
}

// NewService creates a new standards service
func NewService(repo *Repository, eventMgr *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		eventMgr: eventMgr,
		log:     log.With().Str("service", "standards").Logger(),
	}
}

// Get returns a specific standard version
func (s *Service) Get(code string, version int) (*Standard, error) {
	return s.repo.Get(code, version)
}

// Latest returns the latest version for a code
func (s *Service) Latest(code string) (*Standard, error) {
	return s.repo.Latest(code)
}

// ListLatest returns the latest version of every standard
func (s *Service) ListLatest() ([]Standard, error) {
	return s.repo.ListLatest()
}

// Publish inserts the next version of a standard. The version is
// assigned here (latest + 1) so callers can never target an existing
// version for mutation.
func (s *Service) Publish(std Standard) (*Standard, error) {
	if std.Code == "" {
		return nil, fmt.Errorf("standard code is required")
	}
	if len(std.Rules) == 0 {
		return nil, fmt.Errorf("standard %s has no threshold rules", std.Code)
	}
	if _, ok := std.IncomeRule(); !ok && std.IncomeRatioName != "" {
		return nil, fmt.Errorf("standard %s declares income ratio %q but has no rule for it", std.Code, std.IncomeRatioName)
	}

	next := 1
	if latest, err := s.repo.Latest(std.Code); err == nil {
		next = latest.Version + 1
	}
	std.Version = next
	std.ID = ""

	if err := s.repo.Insert(&std); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("code", std.Code).
		Int("version", std.Version).
		Msg("Standard published")

	s.eventMgr.EmitTyped(events.StandardPublished, "standards", &events.StandardPublishedData{
		Code:    std.Code,
		Version: std.Version,
	})

	return &std, nil
}

// EnsureSeeds publishes the built-in standards on first startup. A code
// that already has a published version is left untouched.
func (s *Service) EnsureSeeds() error {
	for _, seed := range SeedStandards() {
		if _, err := s.repo.Latest(seed.Code); err == nil {
			continue
		}
		seed.Version = 1
		if err := s.repo.Insert(&seed); err != nil {
			return fmt.Errorf("failed to seed standard %s: %w", seed.Code, err)
		}
		s.log.Info().Str("code", seed.Code).Msg("Seeded standard")
	}
	return nil
}
