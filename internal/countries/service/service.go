// Package service implements the country rule use cases: browsing the table in
// use, reloading it and editing Postgres-backed rules.
package service

import (
	"context"
	"strings"

	"phonenorm_backend/internal/countries/transport"
	"phonenorm_backend/internal/events"
	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
	"phonenorm_backend/platform/sanitize"
)

// Reload origins carried on events.CountryTableReloaded.
const (
	OriginLocal = "local"
	OriginPeer  = "peer"
)

// Store persists edited rules. Only the Postgres source has one.
type Store interface {
	Upsert(ctx context.Context, entry phone.CountryEntry) error
}

// Announcer tells other instances that the table changed.
type Announcer interface {
	Announce(ctx context.Context, source string, version uint64) error
}

// Service provides business logic for the country rule table.
type Service struct {
	normalizer *phone.Normalizer
	store      Store
	announcer  Announcer
	bus        events.Bus
	log        *logger.Logger
}

// New creates a countries service. store and announcer may be nil.
func New(normalizer *phone.Normalizer, store Store, announcer Announcer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		store:      store,
		announcer:  announcer,
		bus:        bus,
		log:        log,
	}
}

// List returns every entry of the table currently in use.
func (s *Service) List() transport.CountryListResponse {
	table := s.normalizer.Table()
	entries := table.Entries()

	countries := make([]transport.CountryResponse, 0, len(entries))
	for _, e := range entries {
		countries = append(countries, toResponse(table, e))
	}
	return transport.CountryListResponse{
		Source:    table.Source(),
		Version:   table.Version(),
		Count:     len(countries),
		Countries: countries,
	}
}

// Get returns the entry for one calling code.
func (s *Service) Get(callingCode string) (transport.CountryResponse, error) {
	table := s.normalizer.Table()
	entry, ok := table.Lookup(callingCode)
	if !ok {
		return transport.CountryResponse{}, apperr.NotFound("country not found")
	}
	return toResponse(table, entry), nil
}

// Regions lists the region labels the normalize endpoints understand.
func (s *Service) Regions() transport.RegionListResponse {
	return transport.RegionListResponse{Regions: phone.Regions()}
}

// Reload re-reads the table from its source, announces it to peers and
// publishes CountryTableReloaded. On failure the previous table stays in use.
func (s *Service) Reload(ctx context.Context) (transport.ReloadResponse, error) {
	table, err := s.reload(ctx, OriginLocal)
	if err != nil {
		return transport.ReloadResponse{}, err
	}

	if s.announcer != nil {
		if err := s.announcer.Announce(ctx, table.Source(), table.Version()); err != nil {
			s.log.WithContext(ctx).Warn("failed to announce country table reload", "error", err)
		}
	}

	return transport.ReloadResponse{
		Source:  table.Source(),
		Version: table.Version(),
		Entries: table.Len(),
	}, nil
}

// ApplyPeerReload reloads after another instance announced a change. It does
// not announce again.
func (s *Service) ApplyPeerReload(ctx context.Context) error {
	_, err := s.reload(ctx, OriginPeer)
	return err
}

func (s *Service) reload(ctx context.Context, origin string) (*phone.Table, error) {
	table, err := s.normalizer.Reload(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "country table reload failed", err).WithOp("countries.Reload")
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.CountryTableReloaded{
			BaseEvent: events.NewBaseEvent(),
			Source:    table.Source(),
			Entries:   table.Len(),
			Version:   table.Version(),
			Origin:    origin,
		})
	}
	return table, nil
}

// Upsert stores the rules for a calling code and reloads the table so the
// change takes effect immediately.
func (s *Service) Upsert(ctx context.Context, callingCode string, req transport.UpsertCountryRequest) (transport.CountryResponse, error) {
	if s.store == nil {
		return transport.CountryResponse{}, apperr.Unavailable("country rules can only be edited when the table is stored in postgres")
	}

	entry := toEntry(callingCode, req)
	if _, err := phone.NewTable([]phone.CountryEntry{entry}); err != nil {
		return transport.CountryResponse{}, apperr.Validation(err.Error())
	}

	if err := s.store.Upsert(ctx, entry); err != nil {
		s.log.DatabaseError("upsert_country_rule", err)
		return transport.CountryResponse{}, apperr.Internal("failed to store country rule").WithOp("countries.Upsert")
	}

	if _, err := s.Reload(ctx); err != nil {
		return transport.CountryResponse{}, err
	}
	return s.Get(callingCode)
}

func toEntry(callingCode string, req transport.UpsertCountryRequest) phone.CountryEntry {
	territories := sanitize.Labels(req.Territories)
	for i := range territories {
		territories[i] = strings.ToUpper(territories[i])
	}

	return phone.CountryEntry{
		CallingCode:                      callingCode,
		CountryName:                      sanitize.Label(req.CountryName),
		Territories:                      territories,
		InternationalPrefix:              req.InternationalPrefix,
		TrunkPrefix:                      req.TrunkPrefix,
		NationalSignificantNumberLengths: req.NationalSignificantNumberLengths,
		PrefixPattern:                    req.PrefixPattern,
		LengthPattern:                    req.LengthPattern,
		ExampleDisplay:                   strings.TrimSpace(req.ExampleDisplay),
		NumberFormatTemplate:             req.NumberFormatTemplate,
	}
}

func toResponse(table *phone.Table, e phone.CountryEntry) transport.CountryResponse {
	return transport.CountryResponse{
		CountryEntry: e,
		HasStrategy:  phone.HasStrategy(e.CallingCode),
		StripsTrunk:  table.StripsTrunkPrefix(e.CallingCode),
	}
}
