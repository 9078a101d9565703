package discovery

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/courier-client/internal/geo"
	"github.com/example/courier-client/internal/ingest"
	"github.com/example/courier-client/internal/location"
	"github.com/example/courier-client/internal/models"
	"github.com/example/courier-client/internal/observability"
	"github.com/example/courier-client/internal/storage"
)

type State int

const (
	StateIdle State = iota
	StateLocating
	StateFetching
	StatePolling
	StateAssigning
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocating:
		return "locating"
	case StateFetching:
		return "fetching"
	case StatePolling:
		return "polling"
	case StateAssigning:
		return "assigning"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// API is the backend surface the flow consumes.
type API interface {
	NearbyRiders(ctx context.Context, lat, lng float64) ([]models.Candidate, string, error)
	AcceptedRiders(ctx context.Context, uniqueKey string) ([]models.Acceptance, error)
	AssignOrder(ctx context.Context, riderID, orderID string, at models.Coord, address string) error
	RejectRider(ctx context.Context, riderID, uniqueKey string) error
}

// TelemetrySink receives flow lifecycle events. *ingest.KafkaPublisher
// satisfies it and is nil-safe when unconfigured.
type TelemetrySink interface {
	PublishFlowEvent(e ingest.FlowEvent) error
}

type Options struct {
	Poll      PollConfig
	Address   string                  // delivery pickup address sent on assignment
	History   storage.AssignmentStore // optional
	Telemetry TelemetrySink           // optional
}

// Flow drives one rider discovery and assignment session: locate the
// requester, fetch candidates, poll acceptances on a cadence, rank by
// distance, and confirm an assignment. One Flow per session; teardown goes
// through Stop.
type Flow struct {
	api API
	loc location.Provider
	log *slog.Logger
	opt Options

	mu          sync.Mutex
	state       State
	lastErr     error
	candidates  []models.Candidate
	acceptances map[string]models.Acceptance
	uniqueKey   string
	requester   models.Coord
	gen         int // bumped on teardown; in-flight ticks from an old gen are dropped
	poller      *Poller
}

func NewFlow(api API, loc location.Provider, log *slog.Logger, opt Options) *Flow {
	if opt.Poll.Interval <= 0 {
		opt.Poll.Interval = 3 * time.Second
	}
	if opt.Poll.MaxBackoff < opt.Poll.Interval {
		opt.Poll.MaxBackoff = 10 * opt.Poll.Interval
	}
	return &Flow{
		api:         api,
		loc:         loc,
		log:         log,
		opt:         opt,
		acceptances: make(map[string]models.Acceptance),
	}
}

// Start runs Idle -> LocatingRequester -> FetchingCandidates -> Polling.
// Polling begins only once the session key is known. On error the flow
// parks in StateError with an empty candidate list but stays usable for
// inspection and teardown.
func (f *Flow) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.state = StateLocating
	f.mu.Unlock()

	at, err := f.loc.Current(ctx)
	if err != nil {
		f.fail(err)
		return err
	}

	f.mu.Lock()
	f.requester = at
	f.state = StateFetching
	f.mu.Unlock()

	cands, key, err := f.api.NearbyRiders(ctx, at.Lat, at.Lng)
	if err != nil {
		f.fail(err)
		return err
	}

	f.mu.Lock()
	f.candidates = append([]models.Candidate(nil), cands...)
	f.uniqueKey = key
	f.state = StatePolling
	f.mu.Unlock()

	f.emit(key, "started", "", "", len(cands))

	f.mu.Lock()
	if f.state != StatePolling {
		// torn down while we were starting up
		f.mu.Unlock()
		return nil
	}
	f.poller = StartPoller(ctx, f.opt.Poll, f.tick)
	f.mu.Unlock()
	return nil
}

// tick is one acceptance poll. A failed tick is logged and skipped; the
// previous acceptance set stays in place rather than being cleared, because
// a poll response is authoritative only when it arrives.
func (f *Flow) tick(ctx context.Context) error {
	f.mu.Lock()
	key := f.uniqueKey
	gen := f.gen
	f.mu.Unlock()

	observability.PollTicksTotal.Inc()
	accs, err := f.api.AcceptedRiders(ctx, key)
	if err != nil {
		observability.PollFailuresTotal.Inc()
		f.log.Warn("acceptance poll failed, skipping tick", "error", err)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		// session ended while this tick was in flight
		return nil
	}

	// last poll wins: the response replaces the whole set, no merging
	byPartner := make(map[string]models.Acceptance, len(accs))
	for _, a := range accs {
		byPartner[a.PartnerID] = a
	}
	f.acceptances = byPartner
	observability.AcceptancesSeen.Set(float64(len(byPartner)))
	f.deriveLocked()
	return nil
}

// deriveLocked recomputes candidate distances from the current acceptance
// set and re-ranks: accepted riders ascending by distance, then the rest in
// their original order.
func (f *Flow) deriveLocked() {
	for i := range f.candidates {
		if a, ok := f.acceptances[f.candidates[i].ID]; ok {
			d := geo.Haversine(f.requester.Lat, f.requester.Lng, a.Lat, a.Lng)
			f.candidates[i].DistanceKm = &d
		} else {
			f.candidates[i].DistanceKm = nil
		}
	}
	sort.SliceStable(f.candidates, func(i, j int) bool {
		di, dj := f.candidates[i].DistanceKm, f.candidates[j].DistanceKm
		switch {
		case di != nil && dj != nil:
			return *di < *dj
		case di != nil:
			return true
		default:
			return false
		}
	})
}

// Assign confirms the chosen rider: assign the order, then reject the rider
// from the acceptance pool so they stop appearing available to concurrent
// sessions. Strictly sequential so a rejection failure never masks whether
// the assignment happened.
func (f *Flow) Assign(ctx context.Context, orderID, riderID string) error {
	f.mu.Lock()
	if f.state != StatePolling && f.state != StateAssigning {
		f.mu.Unlock()
		return ErrNotPolling
	}
	if _, ok := f.acceptances[riderID]; !ok {
		f.mu.Unlock()
		return ErrNotAccepted
	}
	// polling keeps running behind the confirm step
	f.state = StateAssigning
	at := f.requester
	key := f.uniqueKey
	f.mu.Unlock()

	if err := f.api.AssignOrder(ctx, riderID, orderID, at, f.opt.Address); err != nil {
		observability.AssignmentsTotal.WithLabelValues("failed").Inc()
		f.setState(StatePolling)
		return err
	}

	now := time.Now()
	rec := &models.Assignment{
		OrderID:   orderID,
		RiderID:   riderID,
		UniqueKey: key,
		Requester: at,
		Address:   f.opt.Address,
		Status:    "assigned",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if f.opt.History != nil {
		if err := f.opt.History.SaveAssignment(rec); err != nil {
			f.log.Warn("assignment history write failed", "error", err)
		}
	}

	if err := f.api.RejectRider(ctx, riderID, key); err != nil {
		// the assignment already took effect server-side; never retry it
		rec.Status = "partial_failure"
		rec.UpdatedAt = time.Now()
		if f.opt.History != nil {
			if uerr := f.opt.History.UpdateAssignment(rec); uerr != nil {
				f.log.Warn("assignment history update failed", "error", uerr)
			}
		}
		observability.AssignmentsTotal.WithLabelValues("partial").Inc()
		f.emit(key, "partial_failure", orderID, riderID, 0)
		f.log.Warn("rider assigned but pool rejection failed", "rider_id", riderID, "error", err)
		f.Stop()
		return &PartialAssignmentError{RiderID: riderID, Err: err}
	}

	observability.AssignmentsTotal.WithLabelValues("assigned").Inc()
	f.emit(key, "assigned", orderID, riderID, 0)
	f.Stop()
	return nil
}

// Stop ends the session: polling is cancelled and late poll responses are
// dropped instead of being applied to a dead session. Idempotent; called on
// teardown and after a confirmed assignment.
func (f *Flow) Stop() {
	f.mu.Lock()
	if f.state != StateError {
		f.state = StateDone
	}
	f.gen++
	p := f.poller
	f.poller = nil
	f.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Candidates returns the current ranked candidate list.
func (f *Flow) Candidates() []models.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Candidate, len(f.candidates))
	copy(out, f.candidates)
	return out
}

// Accepted reports whether the rider has an acceptance in the latest poll.
func (f *Flow) Accepted(riderID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.acceptances[riderID]
	return ok
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Flow) UniqueKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uniqueKey
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) fail(err error) {
	f.mu.Lock()
	f.state = StateError
	f.lastErr = err
	f.mu.Unlock()
}

func (f *Flow) emit(key, kind, orderID, riderID string, acceptances int) {
	if f.opt.Telemetry == nil {
		return
	}
	e := ingest.FlowEvent{
		UniqueKey:   key,
		Kind:        kind,
		OrderID:     orderID,
		RiderID:     riderID,
		Acceptances: acceptances,
		At:          time.Now(),
	}
	if err := f.opt.Telemetry.PublishFlowEvent(e); err != nil {
		f.log.Warn("telemetry publish failed", "error", err)
	}
}
