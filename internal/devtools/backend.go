package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"mrtui/internal/geo"
	"mrtui/internal/remote"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	orbgeo "github.com/paulmach/orb/geo"
)

// Backend is an in-memory MapRoulette API for demos and tests.
type Backend struct {
	// RequireSession makes /api/me answer 401 without a session cookie.
	RequireSession bool
	// Now stamps updates; time.Now when nil.
	Now func() time.Time

	mu         sync.Mutex
	user       remote.User
	challenges []*challengeState
	bySlug     map[string]*challengeState
	updates    []Update
}

// Update is a task disposition received by the backend.
type Update struct {
	Challenge string
	TaskID    string
	Action    remote.Action
	Editor    string
	At        time.Time
}

type challengeState struct {
	challenge remote.Challenge
	tasks     []*taskState
}

type taskState struct {
	fixture  TaskFixture
	status   remote.TaskStatus
	assigned bool
}

func NewBackend(f Fixtures) *Backend {
	b := &Backend{user: f.User, bySlug: map[string]*challengeState{}}
	for _, cf := range f.Challenges {
		cs := &challengeState{challenge: cf.Challenge}
		for _, tf := range cf.Tasks {
			status := tf.Status
			if status == "" {
				status = remote.StatusCreated
			}
			cs.tasks = append(cs.tasks, &taskState{fixture: tf, status: status})
		}
		b.challenges = append(b.challenges, cs)
		b.bySlug[cf.Challenge.Slug] = cs
	}
	return b
}

// Updates returns the dispositions received so far.
func (b *Backend) Updates() []Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Update(nil), b.updates...)
}

// Settings returns the user's stored settings.
func (b *Backend) Settings() remote.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user.Settings
}

func (b *Backend) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/me", b.getMe).Methods(http.MethodGet)
	r.HandleFunc("/api/me", b.putMe).Methods(http.MethodPut)
	r.HandleFunc("/api/challenges", b.listChallenges).Methods(http.MethodGet)
	r.HandleFunc("/api/challenge", b.pickChallenge).Methods(http.MethodGet)
	r.HandleFunc("/api/challenge/{slug}", b.getChallenge).Methods(http.MethodGet)
	r.HandleFunc("/api/challenge/{slug}/stats", b.getStats).Methods(http.MethodGet)
	r.HandleFunc("/api/challenge/{slug}/task", b.nextTask).Methods(http.MethodGet)
	r.HandleFunc("/api/challenge/{slug}/task/{id}", b.getTask).Methods(http.MethodGet)
	r.HandleFunc("/api/challenge/{slug}/task/{id}", b.updateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/challenge/{slug}/task/{id}/geometries", b.getGeometries).Methods(http.MethodGet)
	r.HandleFunc("/api/stats/me", b.userStats).Methods(http.MethodGet)
	r.HandleFunc("/api/stats/challenges", b.challengeStats).Methods(http.MethodGet)
	r.HandleFunc("/signin", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("This demo server has no sign in. Every session is welcome.\n"))
	}).Methods(http.MethodGet)
	return r
}

// Start serves the backend on addr ("127.0.0.1:0" picks a free port) and
// returns its base URL.
func (b *Backend) Start(addr string) (string, func(context.Context) error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: b.Handler()}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = ln.Close()
		}
	}()
	return "http://" + ln.Addr().String(), srv.Shutdown, nil
}

func (b *Backend) getMe(w http.ResponseWriter, r *http.Request) {
	if b.RequireSession {
		if c, err := r.Cookie("session"); err != nil || c.Value == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "sign in first")
			return
		}
	}
	b.mu.Lock()
	user := b.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) putMe(w http.ResponseWriter, r *http.Request) {
	var s remote.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid settings")
		return
	}
	b.mu.Lock()
	b.user.Settings = s
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listChallenges(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]remote.Challenge, 0, len(b.challenges))
	for _, cs := range b.challenges {
		out = append(out, cs.challenge)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// pickChallenge returns the closest active challenge with open tasks,
// honouring the difficulty filter.
func (b *Backend) pickChallenge(w http.ResponseWriter, r *http.Request) {
	difficulty, _ := strconv.Atoi(r.URL.Query().Get("difficulty"))
	near, hasNear := nearFrom(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	var (
		best     *challengeState
		bestDist = math.Inf(1)
	)
	for _, cs := range b.challenges {
		ch := cs.challenge
		if !ch.Active || cs.available() == 0 {
			continue
		}
		if difficulty > 0 && ch.Difficulty != difficulty {
			continue
		}
		d := 0.0
		if hasNear && ch.HasBias() {
			d = orbgeo.Distance(near, orb.Point{ch.Lon, ch.Lat})
		}
		if best == nil || d < bestDist {
			best, bestDist = cs, d
		}
	}
	if best == nil {
		writeComplete(w)
		return
	}
	writeJSON(w, http.StatusOK, best.challenge)
}

func (b *Backend) getChallenge(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.bySlug[mux.Vars(r)["slug"]]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "no such challenge")
		return
	}
	writeJSON(w, http.StatusOK, cs.challenge)
}

func (b *Backend) getStats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.bySlug[mux.Vars(r)["slug"]]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "no such challenge")
		return
	}
	writeJSON(w, http.StatusOK, remote.Stats{Total: len(cs.tasks), Available: cs.available()})
}

// nextTask hands out the open task closest to lon/lat, or the first one.
func (b *Backend) nextTask(w http.ResponseWriter, r *http.Request) {
	near, hasNear := nearFrom(r)
	assign := r.URL.Query().Get("assign") != "0"

	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.bySlug[mux.Vars(r)["slug"]]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "no such challenge")
		return
	}
	open := make([]*taskState, 0, len(cs.tasks))
	for _, t := range cs.tasks {
		if t.open() {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		writeComplete(w)
		return
	}
	// tasks inside the user's edit area go first
	if ea := b.user.Settings.EditArea; ea != nil && ea.Radius > 0 {
		area := ea.Circle()
		var inside []*taskState
		for _, t := range open {
			if c, ok := t.center(); ok && area.Contains(c) {
				inside = append(inside, t)
			}
		}
		if len(inside) > 0 {
			open = inside
		}
	}
	if hasNear {
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].distance(near) < open[j].distance(near)
		})
	}
	t := open[0]
	if assign {
		t.assigned = true
		t.status = remote.StatusAssigned
	}
	writeJSON(w, http.StatusOK, t.wire(cs.challenge.Slug))
}

func (b *Backend) getTask(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, t := b.lookup(r)
	if t == nil {
		writeError(w, http.StatusNotFound, "NotFound", "no such task")
		return
	}
	writeJSON(w, http.StatusOK, t.wire(cs.challenge.Slug))
}

func (b *Backend) getGeometries(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, t := b.lookup(r)
	if t == nil {
		writeError(w, http.StatusNotFound, "NotFound", "no such task")
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, f := range t.fixture.Features {
		fc.Append(f.ToGeoJSON())
	}
	writeJSON(w, http.StatusOK, fc)
}

func (b *Backend) updateTask(w http.ResponseWriter, r *http.Request) {
	var u remote.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil || u.Action == "" {
		writeError(w, http.StatusBadRequest, "BadRequest", "action is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, t := b.lookup(r)
	if t == nil {
		writeError(w, http.StatusNotFound, "NotFound", "no such task")
		return
	}
	switch u.Action {
	case remote.ActionFixed:
		t.status = remote.StatusFixed
	case remote.ActionFalsePositive:
		t.status = remote.StatusFalsePositive
	case remote.ActionAlreadyFixed:
		t.status = remote.StatusAlreadyFixed
	case remote.ActionEditing:
		t.status = remote.StatusEditing
	case remote.ActionSkipped:
		t.status = remote.StatusSkipped
	default:
		writeError(w, http.StatusBadRequest, "BadRequest", "unknown action "+string(u.Action))
		return
	}
	b.updates = append(b.updates, Update{Challenge: cs.challenge.Slug, TaskID: t.fixture.ID, Action: u.Action, Editor: u.Editor, At: b.now()})
	w.WriteHeader(http.StatusNoContent)
}

// userStats summarizes the dispositions received so far per challenge and
// status. Editing marks are not work done and stay out.
func (b *Backend) userStats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := remote.UserStats{Challenges: map[string]remote.ChallengeActivity{}}
	for _, u := range b.updates {
		if u.Action == remote.ActionEditing {
			continue
		}
		ca, ok := out.Challenges[u.Challenge]
		if !ok {
			ca = remote.ChallengeActivity{Statuses: map[string]remote.StatusActivity{}}
			if cs := b.bySlug[u.Challenge]; cs != nil {
				ca.Title = cs.challenge.Title
			}
		}
		sa := ca.Statuses[string(u.Action)]
		sa.Count++
		if sa.First.IsZero() || u.At.Before(sa.First) {
			sa.First = u.At
		}
		if u.At.After(sa.Last) {
			sa.Last = u.At
		}
		ca.Statuses[string(u.Action)] = sa
		out.Challenges[u.Challenge] = ca
	}
	writeJSON(w, http.StatusOK, out)
}

// challengeStats counts every challenge's tasks by current status.
func (b *Backend) challengeStats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]remote.ChallengeSummary, len(b.challenges))
	for _, cs := range b.challenges {
		sum := remote.ChallengeSummary{Title: cs.challenge.Title, Statuses: map[string]int{}}
		for _, t := range cs.tasks {
			sum.Statuses[string(t.status)]++
		}
		out[cs.challenge.Slug] = sum
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

func (b *Backend) lookup(r *http.Request) (*challengeState, *taskState) {
	vars := mux.Vars(r)
	cs, ok := b.bySlug[vars["slug"]]
	if !ok {
		return nil, nil
	}
	for _, t := range cs.tasks {
		if t.fixture.ID == vars["id"] {
			return cs, t
		}
	}
	return cs, nil
}

func (cs *challengeState) available() int {
	n := 0
	for _, t := range cs.tasks {
		if !t.status.Terminal() {
			n++
		}
	}
	return n
}

// open tasks can be handed out: not finished and not held by someone else.
func (t *taskState) open() bool {
	return !t.status.Terminal() && !t.assigned
}

func (t *taskState) center() (orb.Point, bool) {
	b, ok := geo.FeaturesBound(t.fixture.Features)
	if !ok {
		return orb.Point{}, false
	}
	return b.Center(), true
}

func (t *taskState) distance(p orb.Point) float64 {
	c, ok := t.center()
	if !ok {
		return math.Inf(1)
	}
	return orbgeo.Distance(p, c)
}

type wireTask struct {
	Identifier  string            `json:"identifier"`
	Challenge   string            `json:"challenge"`
	Status      remote.TaskStatus `json:"status"`
	Instruction string            `json:"instruction,omitempty"`
}

func (t *taskState) wire(slug string) wireTask {
	return wireTask{Identifier: t.fixture.ID, Challenge: slug, Status: t.status, Instruction: t.fixture.Instruction}
}

func nearFrom(r *http.Request) (orb.Point, bool) {
	q := r.URL.Query()
	lon, err1 := strconv.ParseFloat(q.Get("lon"), 64)
	lat, err2 := strconv.ParseFloat(q.Get("lat"), 64)
	if err1 != nil || err2 != nil {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

func writeComplete(w http.ResponseWriter) {
	writeError(w, remote.StatusChallengeComplete, "ChallengeComplete", "no tasks left")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
