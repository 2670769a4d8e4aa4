package resolver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"visionguard/internal/broker"
	"visionguard/pkg/logging"
)

type fakeRepo struct {
	failAlways  bool
	cameras     []broker.Camera
	ranges      []broker.AngleRange
	camerasByID map[string]broker.Camera
	calls       int
}

func (f *fakeRepo) ListCamerasByDirection(ctx context.Context, direction string) ([]broker.Camera, error) {
	f.calls++
	if f.failAlways {
		return nil, fmt.Errorf("backing store down: %w", broker.ErrTransient)
	}
	var out []broker.Camera
	for _, c := range f.cameras {
		if containsString(c.Directions, direction) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAngleRangesEnabled(ctx context.Context) ([]broker.AngleRange, error) {
	f.calls++
	if f.failAlways {
		return nil, fmt.Errorf("backing store down: %w", broker.ErrTransient)
	}
	return f.ranges, nil
}

func (f *fakeRepo) GetCameraByID(ctx context.Context, id string) (*broker.Camera, error) {
	f.calls++
	if f.failAlways {
		return nil, fmt.Errorf("backing store down: %w", broker.ErrTransient)
	}
	if cam, ok := f.camerasByID[id]; ok {
		return &cam, nil
	}
	return nil, nil
}

func fastConfig() Config {
	return Config{
		CacheTTL:       10 * time.Millisecond,
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

// S1 — direction fan-out: A(forward), B(forward,left,online), C(backward,online),
// D(forward,offline). Publishing direction_result{command:forward} must
// resolve to [A, B] ordered alphabetically by name.
func TestResolveDirection_FanOut(t *testing.T) {
	repo := &fakeRepo{
		cameras: []broker.Camera{
			{ID: "a", Name: "A", Status: "online", Directions: []string{"forward"}},
			{ID: "b", Name: "B", Status: "online", Directions: []string{"forward", "left"}},
			{ID: "c", Name: "C", Status: "online", Directions: []string{"backward"}},
			{ID: "d", Name: "D", Status: "offline", Directions: []string{"forward"}},
		},
	}
	r := New(repo, fastConfig(), nil, logging.NewLogger())

	cameras := r.Resolve(context.Background(), broker.MessageData{
		Type: "direction_result",
		Data: broker.Payload{"command": "forward"},
	})

	if len(cameras) != 2 || cameras[0].Name != "A" || cameras[1].Name != "B" {
		t.Fatalf("expected [A, B], got %+v", cameras)
	}
}

// S2 — angle wrap: R1[0,90)->X, R2[270,360)->Y. angle=-10 wraps to 350,
// which falls in R2, so cameras=[Y].
func TestResolveAngle_Wrap(t *testing.T) {
	repo := &fakeRepo{
		ranges: []broker.AngleRange{
			{ID: "r1", MinAngle: 0, MaxAngle: 90, Enabled: true, CameraIDs: []string{"x"}},
			{ID: "r2", MinAngle: 270, MaxAngle: 360, Enabled: true, CameraIDs: []string{"y"}},
		},
		camerasByID: map[string]broker.Camera{
			"x": {ID: "x", Name: "X"},
			"y": {ID: "y", Name: "Y"},
		},
	}
	r := New(repo, fastConfig(), nil, logging.NewLogger())

	cameras := r.Resolve(context.Background(), broker.MessageData{
		Type: "angle_value",
		Data: broker.Payload{"angle": -10.0},
	})

	if len(cameras) != 1 || cameras[0].ID != "y" {
		t.Fatalf("expected [Y], got %+v", cameras)
	}
}

func TestMod360_Boundaries(t *testing.T) {
	cases := map[float64]float64{
		-180: 180,
		360:  0,
		-10:  350,
		0:    0,
		359:  359,
	}
	for in, want := range cases {
		if got := mod360(in); got != want {
			t.Errorf("mod360(%v) = %v, want %v", in, got, want)
		}
	}
}

// S5 — resolver degradation: repository always fails transient, no prior
// cache entry. Resolve must return an empty set, never panic or error out.
func TestResolveDirection_BackingStoreDown(t *testing.T) {
	repo := &fakeRepo{failAlways: true}
	r := New(repo, fastConfig(), nil, logging.NewLogger())

	cameras := r.Resolve(context.Background(), broker.MessageData{
		Type: "direction_result",
		Data: broker.Payload{"command": "forward"},
	})

	if len(cameras) != 0 {
		t.Fatalf("expected empty camera set on backing-store failure, got %+v", cameras)
	}
	if repo.calls == 0 {
		t.Fatalf("expected repository to have been called at least once")
	}
}

// Once a value has been served successfully, a subsequent backing-store
// outage falls back to it instead of degrading to empty.
func TestResolveDirection_FallsBackToLastKnownGood(t *testing.T) {
	repo := &fakeRepo{
		cameras: []broker.Camera{
			{ID: "a", Name: "A", Status: "online", Directions: []string{"forward"}},
		},
	}
	r := New(repo, fastConfig(), nil, logging.NewLogger())

	msg := broker.MessageData{Type: "direction_result", Data: broker.Payload{"command": "forward"}}

	first := r.Resolve(context.Background(), msg)
	if len(first) != 1 {
		t.Fatalf("expected 1 camera on first resolve, got %+v", first)
	}

	time.Sleep(15 * time.Millisecond) // let the TTL entry expire
	repo.failAlways = true

	second := r.Resolve(context.Background(), msg)
	if len(second) != 1 || second[0].ID != "a" {
		t.Fatalf("expected fallback to last-known-good [A], got %+v", second)
	}
}

// Invariant 5 — deterministic ordering: repeated resolution of the same
// routing state yields identical camera lists in the same order.
func TestResolveAngle_DeterministicOrdering(t *testing.T) {
	repo := &fakeRepo{
		ranges: []broker.AngleRange{
			{ID: "r1", MinAngle: 0, MaxAngle: 360, Enabled: true, CameraIDs: []string{"b", "a", "c"}},
		},
		camerasByID: map[string]broker.Camera{
			"a": {ID: "a", Name: "A"},
			"b": {ID: "b", Name: "B"},
			"c": {ID: "c", Name: "C"},
		},
	}
	r := New(repo, fastConfig(), nil, logging.NewLogger())
	msg := broker.MessageData{Type: "angle_value", Data: broker.Payload{"angle": 10.0}}

	first := r.Resolve(context.Background(), msg)
	second := r.Resolve(context.Background(), msg)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical ordering across resolves, got %+v then %+v", first, second)
	}
}

func TestResolveAlert_DefaultEmpty(t *testing.T) {
	r := New(&fakeRepo{}, fastConfig(), nil, logging.NewLogger())
	cameras := r.Resolve(context.Background(), broker.MessageData{Type: "ai_alert", Data: broker.Payload{}})
	if len(cameras) != 0 {
		t.Fatalf("expected empty camera set by default, got %+v", cameras)
	}
}

func TestResolveAlert_CustomPolicy(t *testing.T) {
	r := New(&fakeRepo{}, fastConfig(), nil, logging.NewLogger())
	want := []broker.Camera{{ID: "z", Name: "Z"}}
	r.SetAlertPolicy(func(payload broker.Payload) []broker.Camera { return want })

	cameras := r.Resolve(context.Background(), broker.MessageData{Type: "ai_alert", Data: broker.Payload{}})
	if !reflect.DeepEqual(cameras, want) {
		t.Fatalf("expected custom policy result, got %+v", cameras)
	}
}

func TestResolve_UnknownTypeEmpty(t *testing.T) {
	r := New(&fakeRepo{}, fastConfig(), nil, logging.NewLogger())
	cameras := r.Resolve(context.Background(), broker.MessageData{Type: "custom_thing", Data: broker.Payload{}})
	if cameras != nil {
		t.Fatalf("expected nil for unrecognized type, got %+v", cameras)
	}
}

var errBoom = errors.New("boom")

func TestIsTransientClassification(t *testing.T) {
	if !broker.IsTransient(fmt.Errorf("wrap: %w", broker.ErrTransient)) {
		t.Fatalf("expected wrapped ErrTransient to classify as transient")
	}
	if broker.IsTransient(errBoom) {
		t.Fatalf("expected unrelated error to not classify as transient")
	}
}
