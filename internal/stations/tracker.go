// Package stations keeps a live roster of check-in stations.
//
// A station is whatever scans tickets at the door: a phone, a kiosk, a
// handheld reader. Clients name themselves with the X-Passin-Station header
// (or the x-passin-station gRPC metadata key), and the server records every
// check-in attempt against that name. A background reaper marks stations
// offline once they have been quiet for longer than a threshold, so door
// staff can see which entrances have stopped scanning.
package stations

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/passin/internal/clock"
)

// Header is the HTTP header a station uses to identify itself.
const Header = "X-Passin-Station"

// MetadataKey is the gRPC metadata key a station uses to identify itself.
const MetadataKey = "x-passin-station"

// Entry is one station's state as reported by Roster.
type Entry struct {
	Station     string    `json:"station"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	LastEventID string    `json:"last_event_id,omitempty"`
	LastTicket  string    `json:"last_ticket_id,omitempty"`
	Admitted    int64     `json:"admitted"`
	Refused     int64     `json:"refused"`
	IdleSecs    float64   `json:"idle_secs"`
	Offline     bool      `json:"offline,omitempty"`
	OfflineAt   time.Time `json:"offline_at,omitzero"`
}

// Scan is a single check-in attempt made by a station.
type Scan struct {
	Station  string
	EventID  string // empty when the ticket was unknown
	TicketID string
	Admitted bool
}

// ReaperConfig configures the background offline reaper.
type ReaperConfig struct {
	// IdleThreshold is how long a station may go without scanning before it
	// is marked offline. Default: 15 minutes.
	IdleThreshold time.Duration

	// EvictAfter is how long an offline station stays in the roster before
	// it is forgotten. Default: 12 hours.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper runs. Default: 60 seconds.
	SweepInterval time.Duration

	// OnOffline is called, outside the lock, for each station newly marked
	// offline.
	OnOffline func(Entry)
}

// Tracker maintains the in-memory station roster.
type Tracker struct {
	clock clock.Clock

	mu       sync.RWMutex
	stations map[string]*stationState

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type stationState struct {
	firstSeen   time.Time
	lastSeen    time.Time
	lastEventID string
	lastTicket  string
	admitted    int64
	refused     int64
	offline     bool
	offlineAt   time.Time
}

// New returns an empty Tracker. A nil clock means the system clock.
func New(c clock.Clock) *Tracker {
	if c == nil {
		c = clock.System()
	}
	return &Tracker{
		clock:    c,
		stations: make(map[string]*stationState),
	}
}

// Record notes a check-in attempt. Scans without a station name are ignored.
func (t *Tracker) Record(scan Scan) {
	if scan.Station == "" {
		return
	}

	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.stations[scan.Station]
	if !ok {
		st = &stationState{firstSeen: now}
		t.stations[scan.Station] = st
	}
	if st.offline {
		slog.Info("stations: station back online", "station", scan.Station)
		st.offline = false
		st.offlineAt = time.Time{}
	}

	st.lastSeen = now
	st.lastTicket = scan.TicketID
	if scan.EventID != "" {
		st.lastEventID = scan.EventID
	}
	if scan.Admitted {
		st.admitted++
	} else {
		st.refused++
	}
}

// Roster returns every known station, most recently active first. Stations
// idle for longer than within are left out; within <= 0 includes all.
func (t *Tracker) Roster(within time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock.Now()
	entries := make([]Entry, 0, len(t.stations))
	for name, st := range t.stations {
		idle := now.Sub(st.lastSeen)
		if within > 0 && idle > within {
			continue
		}
		entries = append(entries, st.entry(name, idle))
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Station < entries[j].Station
	})
	return entries
}

func (st *stationState) entry(name string, idle time.Duration) Entry {
	return Entry{
		Station:     name,
		FirstSeen:   st.firstSeen,
		LastSeen:    st.lastSeen,
		LastEventID: st.lastEventID,
		LastTicket:  st.lastTicket,
		Admitted:    st.admitted,
		Refused:     st.refused,
		IdleSecs:    idle.Seconds(),
		Offline:     st.offline,
		OfflineAt:   st.offlineAt,
	}
}

// StartReaper launches the background reaper. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg ReaperConfig) {
	cfg = cfg.withDefaults()
	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("stations: reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine, if one is running.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (cfg ReaperConfig) withDefaults() ReaperConfig {
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 15 * time.Minute
	}
	if cfg.EvictAfter <= 0 {
		cfg.EvictAfter = 12 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 60 * time.Second
	}
	return cfg
}

func (t *Tracker) reapLoop(cfg ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

// sweep marks idle stations offline and evicts long-offline ones.
func (t *Tracker) sweep(cfg ReaperConfig) {
	now := t.clock.Now()
	var newlyOffline []Entry

	t.mu.Lock()
	for name, st := range t.stations {
		if st.offline {
			if now.Sub(st.offlineAt) > cfg.EvictAfter {
				delete(t.stations, name)
			}
			continue
		}
		idle := now.Sub(st.lastSeen)
		if idle > cfg.IdleThreshold {
			st.offline = true
			st.offlineAt = now
			newlyOffline = append(newlyOffline, st.entry(name, idle))
		}
	}
	t.mu.Unlock()

	for _, e := range newlyOffline {
		slog.Info("stations: station went offline",
			"station", e.Station,
			"idle", time.Duration(e.IdleSecs*float64(time.Second)).Round(time.Second))
		if cfg.OnOffline != nil {
			cfg.OnOffline(e)
		}
	}
}
