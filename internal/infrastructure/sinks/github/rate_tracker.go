package github

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Tomas-vilte/MateMigrate/internal/logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v80/github"
)

// rateTracker sigue la cuota del remoto: Unknown → Known(remaining, reset).
// Con remaining en 0 queda Throttled hasta reset más el margen de
// seguridad, y toda operación se suspende hasta que el margen pase. Las
// etiquetas de una issue se crean concurrentemente, así que todo el estado
// va bajo el mutex.
type rateTracker struct {
	limits RateLimitsService
	margin time.Duration

	mu            sync.Mutex
	known         bool
	remaining     int
	lastReset     time.Time
	throttledTill time.Time
}

func newRateTracker(limits RateLimitsService, margin time.Duration) *rateTracker {
	return &rateTracker{limits: limits, margin: margin}
}

// UpdateFromResponse refresca la cuota con los metadatos de cualquier
// respuesta, exitosa o fallida: un fallo no implica que la cuota no se
// haya consumido.
func (rt *rateTracker) UpdateFromResponse(resp *github.Response) {
	if resp == nil {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.known = true
	rt.remaining = resp.Rate.Remaining
	if !resp.Rate.Reset.IsZero() {
		rt.lastReset = resp.Rate.Reset.Time
	}
	if rt.remaining == 0 && !rt.lastReset.IsZero() {
		rt.throttledTill = rt.lastReset.Add(rt.margin)
	}

	if resp.Response != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				rt.throttledTill = time.Now().Add(time.Duration(seconds)*time.Second + rt.margin)
			}
		}
	}
}

// Wait suspende cooperativamente mientras dure el throttling y vuelve a
// sondear la cuota antes de continuar; la condición de reanudación no se
// asume, se verifica contra el remoto.
func (rt *rateTracker) Wait(ctx context.Context) error {
	for {
		rt.mu.Lock()
		waitTime := time.Until(rt.throttledTill)
		rt.mu.Unlock()
		if waitTime <= 0 {
			return nil
		}

		logger.Warn(ctx, "rate limit excedido, esperando", "seconds", int(waitTime.Seconds())+1)
		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		rt.mu.Lock()
		rt.throttledTill = time.Time{}
		rt.mu.Unlock()
		if _, err := rt.Probe(ctx); err != nil {
			return err
		}
	}
}

// Probe consulta la cuota explícitamente. Los fallos transitorios se
// reintentan con backoff exponencial.
func (rt *rateTracker) Probe(ctx context.Context) (remaining int, err error) {
	var reset time.Time

	operation := func() error {
		limits, resp, err := rt.limits.Get(ctx)
		if err != nil {
			rt.UpdateFromResponse(resp)
			return err
		}
		if core := limits.GetCore(); core != nil {
			remaining = core.Remaining
			reset = core.Reset.Time
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return 0, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.known = true
	rt.remaining = remaining
	rt.lastReset = reset
	if remaining == 0 {
		rt.throttledTill = reset.Add(rt.margin)
		logger.Warn(ctx, "rate limit agotado", "reset", reset.Format(time.RFC1123))
	}
	return remaining, nil
}

// Remaining devuelve la última cuota observada, -1 si todavía es Unknown.
func (rt *rateTracker) Remaining() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.known {
		return -1
	}
	return rt.remaining
}

// LastReset devuelve el último reset observado de la cuota.
func (rt *rateTracker) LastReset() time.Time {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.lastReset
}
