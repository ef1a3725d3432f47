package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultLocationTimeout = 10 * time.Second
	DefaultLocationMaxAge  = 5 * time.Minute
)

var ErrLocationUnsupported = errors.New("geolocation not supported")

// LocationProvider returns the device position. maxAge bounds how old a cached
// fix may be.
type LocationProvider interface {
	CurrentPosition(ctx context.Context, maxAge time.Duration) (Location, error)
}

// LocationOutcome is the result of a location request. A nil Location is a
// valid outcome; Notice carries the transient text shown to the auditor.
type LocationOutcome struct {
	Location *Location
	Notice   string
}

// AcquireLocation asks provider for a fix within timeout. It never fails:
// every problem becomes "no location".
func AcquireLocation(ctx context.Context, provider LocationProvider, timeout, maxAge time.Duration) LocationOutcome {
	if provider == nil {
		return LocationOutcome{Notice: "Geolocalização não suportada"}
	}
	if timeout <= 0 {
		timeout = DefaultLocationTimeout
	}
	if maxAge <= 0 {
		maxAge = DefaultLocationMaxAge
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loc, err := provider.CurrentPosition(ctx, maxAge)
	switch {
	case err == nil:
		return LocationOutcome{Location: &loc}
	case errors.Is(err, ErrLocationUnsupported):
		return LocationOutcome{Notice: "Geolocalização não suportada"}
	case errors.Is(err, context.DeadlineExceeded):
		return LocationOutcome{Notice: "Tempo esgotado ao obter a localização"}
	default:
		return LocationOutcome{Notice: "Não foi possível obter a localização"}
	}
}

// StaticLocation is a provider for a fix the client already holds.
type StaticLocation struct {
	Fix *Location
}

func (s StaticLocation) CurrentPosition(ctx context.Context, maxAge time.Duration) (Location, error) {
	if s.Fix == nil {
		return Location{}, ErrLocationUnsupported
	}
	if !s.Fix.Valid() {
		return Location{}, fmt.Errorf("invalid coordinates %f, %f", s.Fix.Lat, s.Fix.Lng)
	}
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	return *s.Fix, nil
}
