// Package audit records one log entry per API call and answers time range queries over them.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"minichat/internal/apperr"
	"minichat/internal/storage"
)

// DefaultWindow is the lookback used when a query omits its start time
const DefaultWindow = 5 * time.Minute

const redacted = "[REDACTED]"

// sensitiveFields are replaced in recorded request bodies
var sensitiveFields = []string{"password"}

type Store interface {
	CreateLogEntry(ctx context.Context, e storage.LogEntry) (storage.LogEntry, error)
	LogEntriesBetween(ctx context.Context, start, end time.Time) ([]storage.LogEntry, error)
}

type Service struct {
	logger  *zap.SugaredLogger
	store   Store
	parsers fastjson.ParserPool
	now     func() time.Time
}

func NewService(logger *zap.SugaredLogger, store Store) *Service {
	return &Service{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// Record stores an entry describing a request. Failures are logged and swallowed:
// auditing never fails the request being audited.
func (s *Service) Record(ctx context.Context, ip, username string, body []byte) {
	e := storage.LogEntry{
		IP:          ip,
		RequestBody: s.redact(body),
		Username:    username,
		Timestamp:   s.now().UTC().Truncate(time.Microsecond),
	}

	if _, err := s.store.CreateLogEntry(ctx, e); err != nil {
		s.logger.Errorf("recording audit entry: %v", err)
	}
}

// redact replaces sensitive top-level fields of a JSON object body
func (s *Service) redact(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	p := s.parsers.Get()
	defer s.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil || v.Type() != fastjson.TypeObject {
		return string(body)
	}

	var arena fastjson.Arena
	changed := false
	for _, field := range sensitiveFields {
		if v.Exists(field) {
			v.Set(field, arena.NewString(redacted))
			changed = true
		}
	}
	if !changed {
		return string(body)
	}

	return string(v.MarshalTo(nil))
}

// GetLogs returns entries logged within [start, end]. Nil start defaults to DefaultWindow
// before now and nil end defaults to now.
func (s *Service) GetLogs(ctx context.Context, start, end *time.Time) ([]storage.LogEntry, error) {
	now := s.now().UTC()

	to := now
	if end != nil {
		to = *end
	}
	from := now.Add(-DefaultWindow)
	if start != nil {
		from = *start
	}

	if !from.Before(to) {
		return nil, fmt.Errorf("%w: start time must be before end time", apperr.ErrValidation)
	}

	entries, err := s.store.LogEntriesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no logs between %s and %s", apperr.ErrNotFound, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	return entries, nil
}
