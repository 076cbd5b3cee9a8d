package media

import "context"

// Device acquires local capture tracks. Acquisition can fail with
// ErrPermissionDenied; callers treat that as an expected outcome and keep
// the session running in degraded mode.
type Device interface {
	AcquireMicrophone(ctx context.Context) (Track, error)
	AcquireCamera(ctx context.Context) (Track, error)
	AcquireScreen(ctx context.Context) (Track, error)
}

// StaticDevice produces pion static sample tracks. Permissions, when set,
// decides per source whether acquisition is allowed.
type StaticDevice struct {
	Permissions func(Source) bool
}

func (d *StaticDevice) acquire(ctx context.Context, source Source) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Permissions != nil && !d.Permissions(source) {
		return nil, ErrPermissionDenied
	}
	return NewSampleTrack(source)
}

func (d *StaticDevice) AcquireMicrophone(ctx context.Context) (Track, error) {
	return d.acquire(ctx, Microphone)
}

func (d *StaticDevice) AcquireCamera(ctx context.Context) (Track, error) {
	return d.acquire(ctx, Camera)
}

func (d *StaticDevice) AcquireScreen(ctx context.Context) (Track, error) {
	return d.acquire(ctx, Screen)
}
