package resolver

import (
	"context"
	"math"
	"sort"

	"github.com/failsafe-go/failsafe-go"

	"visionguard/internal/broker"
	"visionguard/pkg/cache"
	"visionguard/pkg/clients"
	"visionguard/pkg/logging"
)

// Resolver implements broker.CameraResolver (C3). It never returns an error
// to its caller: a backing-store failure that survives retries falls back
// to the last-known-good value, and a key with no last-known-good value at
// all resolves to an empty camera set rather than blocking the publish.
type Resolver struct {
	repo   Repository
	logger logging.Logger

	ttl      *cache.Cache
	fallback *fallbackCache

	cameraListExecutor failsafe.Executor[[]broker.Camera]
	angleRangeExecutor failsafe.Executor[[]broker.AngleRange]
	cameraByIDExecutor failsafe.Executor[*broker.Camera]

	alertPolicy AlertPolicy
}

// New builds a Resolver over repo using cfg's cache and retry parameters.
// A nil circuit breaker config disables circuit breaking; repositories that
// are expected to fail hard during outages should pass one in.
func New(repo Repository, cfg Config, cb *clients.CircuitBreaker, logger logging.Logger) *Resolver {
	r := &Resolver{
		repo:     repo,
		logger:   logger,
		fallback: newFallbackCache(),
	}

	r.ttl = cache.New(cache.Options{
		TTL:                  cfg.CacheTTL,
		StaleWhileRevalidate: cfg.CacheStaleWhileRevalidate,
		MaxEntries:           4096,
	}, cache.MetricsHooks{})

	retryCfg := clients.RetryConfig{
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.InitialBackoff,
		MaxDelay:       cfg.MaxBackoff,
		CircuitBreaker: cb,
		ShouldRetry:    broker.IsTransient,
		OnRetry: func(attempt int, err error) {
			logger.WithFields(logging.Fields{
				"kind":    broker.KindResolverTransient,
				"attempt": attempt,
			}).WithError(err).Warn("resolver call failed, retrying")
		},
	}

	r.cameraListExecutor = clients.NewRetryExecutor[[]broker.Camera](retryCfg)
	r.angleRangeExecutor = clients.NewRetryExecutor[[]broker.AngleRange](retryCfg)
	r.cameraByIDExecutor = clients.NewRetryExecutor[*broker.Camera](retryCfg)

	return r
}

// SetAlertPolicy installs the ai_alert resolver-policy override. A nil
// policy restores the default (empty camera set).
func (r *Resolver) SetAlertPolicy(p AlertPolicy) {
	r.alertPolicy = p
}

// Invalidate clears the read-through cache for the given operation and
// argument, e.g. Invalidate("list_cameras_by_direction", "forward").
func (r *Resolver) Invalidate(operation, argument string) {
	r.ttl.Delete(cacheKey(operation, argument))
}

func cacheKey(operation, argument string) string {
	if argument == "" {
		return operation
	}
	return operation + ":" + argument
}

// Resolve implements broker.CameraResolver. Unrecognized message types
// resolve to an empty camera set rather than erroring, so custom
// registrations that don't need camera routing aren't forced to supply one.
func (r *Resolver) Resolve(ctx context.Context, msg broker.MessageData) []broker.Camera {
	switch msg.Type {
	case "direction_result":
		return r.resolveDirection(ctx, msg.Data)
	case "angle_value":
		return r.resolveAngle(ctx, msg.Data)
	case "ai_alert":
		return r.resolveAlert(msg.Data)
	default:
		return nil
	}
}

func (r *Resolver) resolveDirection(ctx context.Context, data broker.Payload) []broker.Camera {
	command, _ := data["command"].(string)
	family, ok := commandDirectionFamily[command]
	if !ok {
		return nil
	}

	cameras := r.listCamerasByDirection(ctx, family)

	out := make([]broker.Camera, 0, len(cameras))
	for _, cam := range cameras {
		if cam.Status != "online" {
			continue
		}
		if containsString(cam.Directions, family) {
			out = append(out, cam)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Resolver) resolveAngle(ctx context.Context, data broker.Payload) []broker.Camera {
	angle, ok := floatField(data, "angle")
	if !ok {
		return nil
	}
	normalized := mod360(angle)

	ranges := r.listAngleRangesEnabled(ctx)

	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, rg := range ranges {
		if !rg.Enabled {
			continue
		}
		if normalized >= rg.MinAngle && normalized < rg.MaxAngle {
			for _, id := range rg.CameraIDs {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}

	out := make([]broker.Camera, 0, len(ids))
	for _, id := range ids {
		cam := r.getCameraByID(ctx, id)
		if cam != nil {
			out = append(out, *cam)
		}
	}
	return out
}

func (r *Resolver) resolveAlert(data broker.Payload) []broker.Camera {
	if r.alertPolicy == nil {
		return nil
	}
	return r.alertPolicy(data)
}

// CurrentState builds the one-shot snapshot the Stream Adapter requests on
// startup (spec.md §4.8, §6).
func (r *Resolver) CurrentState(ctx context.Context) CurrentState {
	directions := make(map[string][]broker.Camera, len(directionFamilies))
	for _, family := range directionFamilies {
		cameras := r.listCamerasByDirection(ctx, family)
		filtered := make([]broker.Camera, 0, len(cameras))
		for _, cam := range cameras {
			if cam.Status == "online" && containsString(cam.Directions, family) {
				filtered = append(filtered, cam)
			}
		}
		sort.Slice(filtered, func(i, j int) bool {
			if filtered[i].Name != filtered[j].Name {
				return filtered[i].Name < filtered[j].Name
			}
			return filtered[i].ID < filtered[j].ID
		})
		directions[family] = filtered
	}

	return CurrentState{
		Directions:  directions,
		AngleRanges: r.listAngleRangesEnabled(ctx),
	}
}

// --- backing-store access: read-through cache + retry + last-known-good fallback ---

func (r *Resolver) listCamerasByDirection(ctx context.Context, direction string) []broker.Camera {
	key := cacheKey("list_cameras_by_direction", direction)

	val, ok, err := r.ttl.Get(ctx, key, func(ctx context.Context, key string) (interface{}, bool, error) {
		cams, err := clients.Execute(ctx, r.cameraListExecutor, func() ([]broker.Camera, error) {
			return r.repo.ListCamerasByDirection(ctx, direction)
		})
		if err != nil {
			return nil, false, err
		}
		r.fallback.set(key, cams)
		return cams, true, nil
	})

	if err != nil || !ok {
		r.logResolverFatal("list_cameras_by_direction", err)
		if fb, has := r.fallback.get(key); has {
			return fb.([]broker.Camera)
		}
		return nil
	}
	return val.([]broker.Camera)
}

func (r *Resolver) listAngleRangesEnabled(ctx context.Context) []broker.AngleRange {
	key := cacheKey("list_angle_ranges_enabled", "")

	val, ok, err := r.ttl.Get(ctx, key, func(ctx context.Context, key string) (interface{}, bool, error) {
		ranges, err := clients.Execute(ctx, r.angleRangeExecutor, func() ([]broker.AngleRange, error) {
			return r.repo.ListAngleRangesEnabled(ctx)
		})
		if err != nil {
			return nil, false, err
		}
		r.fallback.set(key, ranges)
		return ranges, true, nil
	})

	if err != nil || !ok {
		r.logResolverFatal("list_angle_ranges_enabled", err)
		if fb, has := r.fallback.get(key); has {
			return fb.([]broker.AngleRange)
		}
		return nil
	}
	return val.([]broker.AngleRange)
}

func (r *Resolver) getCameraByID(ctx context.Context, id string) *broker.Camera {
	key := cacheKey("get_camera_by_id", id)

	val, ok, err := r.ttl.Get(ctx, key, func(ctx context.Context, key string) (interface{}, bool, error) {
		cam, err := clients.Execute(ctx, r.cameraByIDExecutor, func() (*broker.Camera, error) {
			return r.repo.GetCameraByID(ctx, id)
		})
		if err != nil {
			return nil, false, err
		}
		r.fallback.set(key, cam)
		return cam, true, nil
	})

	if err != nil || !ok {
		r.logResolverFatal("get_camera_by_id", err)
		if fb, has := r.fallback.get(key); has {
			return fb.(*broker.Camera)
		}
		return nil
	}
	if val == nil {
		return nil
	}
	return val.(*broker.Camera)
}

func (r *Resolver) logResolverFatal(operation string, err error) {
	if err == nil {
		return
	}
	r.logger.WithFields(logging.Fields{
		"kind":      broker.KindResolverFatal,
		"operation": operation,
	}).WithError(err).Error("resolver call exhausted retries, falling back")
}

func mod360(angle float64) float64 {
	m := math.Mod(angle, 360)
	if m < 0 {
		m += 360
	}
	return m
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func floatField(p broker.Payload, key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
