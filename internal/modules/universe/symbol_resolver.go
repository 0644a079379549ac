package universe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// isinPattern matches the ISIN syntax: 2-letter country code, 9
// alphanumerics, 1 check digit.
var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IsISIN checks if an identifier is syntactically an ISIN
func IsISIN(identifier string) bool {
	return isinPattern.MatchString(strings.ToUpper(strings.TrimSpace(identifier)))
}

// SymbolResolver resolves upload-collaborator identifiers (tickers or
// ISINs) to the canonical ISIN used throughout the engine.
type SymbolResolver struct {
	securities *SecurityRepository
	log        zerolog.Logger
}

// NewSymbolResolver creates a new symbol resolver
func NewSymbolResolver(securities *SecurityRepository, log zerolog.Logger) *SymbolResolver {
	return &SymbolResolver{
		securities: securities,
		log:        log.With().Str("component", "symbol_resolver").Logger(),
	}
}

// Resolve maps an identifier to an ISIN. ISIN-shaped identifiers are
// verified against the universe; anything else is treated as a ticker
// alias. Unknown identifiers return ErrUnknownTicker, never a guess.
func (sr *SymbolResolver) Resolve(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("empty identifier: %w", domain.ErrUnknownTicker)
	}

	if IsISIN(identifier) {
		isin := strings.ToUpper(identifier)
		if _, err := sr.securities.GetByISIN(isin); err != nil {
			return "", fmt.Errorf("isin %s: %w", isin, domain.ErrUnknownTicker)
		}
		return isin, nil
	}

	sec, err := sr.securities.GetByTicker(strings.ToUpper(identifier))
	if err != nil {
		sr.log.Debug().Str("identifier", identifier).Msg("Ticker lookup failed")
		return "", fmt.Errorf("ticker %s: %w", identifier, domain.ErrUnknownTicker)
	}

	return sec.ISIN, nil
}
