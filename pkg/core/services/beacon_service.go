package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
	"github.com/wadjakorntonsri/go-beacon/pkg/ports"
)

type BeaconService struct {
	sink ports.VisitSink
	now  func() time.Time
	loc  *time.Location
}

type Option func(*BeaconService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *BeaconService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *BeaconService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewBeaconService(sink ports.VisitSink, opts ...Option) *BeaconService {
	s := &BeaconService{
		sink: sink,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record builds the visit for a hit and appends it to the sink. The visit is
// returned even when the append fails so callers can still report it.
func (s *BeaconService) Record(ctx context.Context, hit domain.Hit) (domain.Visit, error) {
	visit := s.NewVisit(hit)
	if s.sink == nil {
		return visit, errors.New("no visit sink configured")
	}
	return visit, s.sink.Append(ctx, visit)
}

// NewVisit applies anonymization and defaults without touching the sink.
func (s *BeaconService) NewVisit(hit domain.Hit) domain.Visit {
	return domain.Visit{
		Timestamp:    s.now().In(s.loc).Truncate(time.Second),
		AnonymizedIP: AnonymizeIP(RemoteHost(hit.RemoteAddr)),
		URL:          orDefault(hit.URL, domain.UnknownURL),
		Referrer:     orDefault(hit.Referrer, domain.DirectReferrer),
		UserAgent:    orDefault(hit.UserAgent, domain.UnknownUserAgent),
	}
}

// AnonymizeIP replaces everything from the last dot onward with ".0".
// Addresses without a dot (plain IPv6) come back unchanged.
func AnonymizeIP(addr string) string {
	idx := strings.LastIndexByte(addr, '.')
	if idx < 0 {
		return addr
	}
	return addr[:idx] + ".0"
}

// RemoteHost strips the port from a RemoteAddr-style "host:port" value.
// Anything that does not split cleanly is returned as is.
func RemoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
