package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"phonenorm_backend/internal/countries/transport"
	"phonenorm_backend/internal/events"
	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
)

// memStore is both the table source and the rule store, like the Postgres repository.
type memStore struct {
	mu      sync.Mutex
	entries   map[string]phone.CountryEntry
	loadErr   error
	upsertErr error
}

func newMemStore(entries ...phone.CountryEntry) *memStore {
	m := &memStore{entries: map[string]phone.CountryEntry{}}
	for _, e := range entries {
		m.entries[e.CallingCode] = e
	}
	return m
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Load(_ context.Context) ([]phone.CountryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]phone.CountryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) Upsert(_ context.Context, e phone.CountryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.entries[e.CallingCode] = e
	return nil
}

func (m *memStore) failLoads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

type recordingAnnouncer struct {
	mu       sync.Mutex
	versions []uint64
}

func (a *recordingAnnouncer) Announce(_ context.Context, _ string, version uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.versions = append(a.versions, version)
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.CountryTableReloaded
}

func (r *eventRecorder) Handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(events.CountryTableReloaded); ok {
		r.events = append(r.events, e)
	}
	return nil
}

var (
	germany = phone.CountryEntry{CallingCode: "49", CountryName: "Germany", Territories: []string{"DE"}, TrunkPrefix: "0"}
	france  = phone.CountryEntry{CallingCode: "33", CountryName: "France", Territories: []string{"FR"}, TrunkPrefix: "0", NumberFormatTemplate: "X XX XX XX XX"}
)

type fixture struct {
	svc       *Service
	store     *memStore
	announcer *recordingAnnouncer
	bus       *events.InMemoryBus
	recorder  *eventRecorder
}

func newFixture(t *testing.T, withStore bool) fixture {
	t.Helper()
	log := logger.Discard()
	store := newMemStore(germany)
	normalizer := phone.NewNormalizer(context.Background(), store, log)

	bus := events.NewInMemoryBus(log)
	recorder := &eventRecorder{}
	bus.Subscribe(events.NameCountryTableReloaded, recorder)

	announcer := &recordingAnnouncer{}
	var s Store
	if withStore {
		s = store
	}
	return fixture{
		svc:       New(normalizer, s, announcer, bus, log),
		store:     store,
		announcer: announcer,
		bus:       bus,
		recorder:  recorder,
	}
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t, false)

	list := f.svc.List()
	if list.Source != "memory" || list.Count != 1 {
		t.Fatalf("expected one entry from memory, got source %q count %d", list.Source, list.Count)
	}
	if !list.Countries[0].HasStrategy || !list.Countries[0].StripsTrunk {
		t.Fatalf("expected Germany to have a strategy and strip its trunk prefix, got %+v", list.Countries[0])
	}

	got, err := f.svc.Get("49")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.CountryName != "Germany" {
		t.Fatalf("expected Germany, got %q", got.CountryName)
	}

	if _, err := f.svc.Get("33"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReload_PublishesAndAnnounces(t *testing.T) {
	f := newFixture(t, false)
	before := f.svc.List().Version

	_ = f.store.Upsert(context.Background(), france)
	res, err := f.svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f.bus.Wait()

	if res.Entries != 2 || res.Version <= before {
		t.Fatalf("expected 2 entries and a newer version than %d, got %+v", before, res)
	}
	if len(f.announcer.versions) != 1 || f.announcer.versions[0] != res.Version {
		t.Fatalf("expected one announcement for version %d, got %v", res.Version, f.announcer.versions)
	}
	if len(f.recorder.events) != 1 || f.recorder.events[0].Origin != OriginLocal {
		t.Fatalf("expected one local reload event, got %+v", f.recorder.events)
	}
}

func TestReload_FailureKeepsTable(t *testing.T) {
	f := newFixture(t, false)
	before := f.svc.List()

	f.store.failLoads(errors.New("connection refused"))
	_, err := f.svc.Reload(context.Background())
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	f.bus.Wait()

	after := f.svc.List()
	if after.Version != before.Version || after.Count != before.Count {
		t.Fatalf("expected table to be kept, before %+v after %+v", before, after)
	}
	if len(f.announcer.versions) != 0 || len(f.recorder.events) != 0 {
		t.Fatal("expected no announcement or event after a failed reload")
	}
}

func TestApplyPeerReload_DoesNotReannounce(t *testing.T) {
	f := newFixture(t, false)

	if err := f.svc.ApplyPeerReload(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f.bus.Wait()

	if len(f.announcer.versions) != 0 {
		t.Fatalf("expected no announcement, got %v", f.announcer.versions)
	}
	if len(f.recorder.events) != 1 || f.recorder.events[0].Origin != OriginPeer {
		t.Fatalf("expected one peer reload event, got %+v", f.recorder.events)
	}
}

func TestUpsert(t *testing.T) {
	t.Run("read-only source", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.Upsert(context.Background(), "33", transport.UpsertCountryRequest{CountryName: "France"})
		if !apperr.Is(err, apperr.KindUnavailable) {
			t.Fatalf("expected unavailable error, got %v", err)
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.svc.Upsert(context.Background(), "33", transport.UpsertCountryRequest{CountryName: "France", PrefixPattern: "^[67"})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.store.upsertErr = errors.New("connection reset")
		_, err := f.svc.Upsert(context.Background(), "33", transport.UpsertCountryRequest{CountryName: "France"})
		if !apperr.Is(err, apperr.KindInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
		if _, err := f.svc.Get("33"); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected rule not to be visible, got %v", err)
		}
	})

	t.Run("stores, sanitizes and reloads", func(t *testing.T) {
		f := newFixture(t, true)
		got, err := f.svc.Upsert(context.Background(), "33", transport.UpsertCountryRequest{
			CountryName:          "  <b>France</b>\t(metro) ",
			Territories:          []string{"fr", " re "},
			TrunkPrefix:          "0",
			NumberFormatTemplate: "X XX XX XX XX",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.CountryName != "France (metro)" {
			t.Fatalf("expected sanitized name, got %q", got.CountryName)
		}
		if len(got.Territories) != 2 || got.Territories[0] != "FR" || got.Territories[1] != "RE" {
			t.Fatalf("expected upper-cased territories, got %v", got.Territories)
		}

		res := f.svc.normalizer.Normalize("01 23 45 67 89", "France")
		if res.Display != "+33 1 23 45 67 89" {
			t.Fatalf("expected the new template to apply, got %q", res.Display)
		}
	})
}
