package storage

import (
	"encoding/json"
	"strings"
	"time"
)

// Cleanup drops stale data from the persistent backend and returns how many
// entries it removed. A top-level value carrying a "timestamp" older than the
// max age is removed outright; an object whose members carry timestamps has
// its stale members pruned. Timestamps are unix milliseconds or RFC 3339.
func (s *Storage) Cleanup() int {
	if s.degraded || s.primary == nil {
		return 0
	}
	keys, err := s.primary.Keys()
	if err != nil {
		s.logger.Warn("storage cleanup skipped", "err", err)
		return 0
	}
	cutoff := s.now().Add(-s.maxAge)

	removed := 0
	for _, k := range keys {
		if strings.HasPrefix(k, probeKeyPrefix) {
			continue
		}
		raw, ok, err := s.primary.Get(k)
		if err != nil || !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			continue
		}
		if ts, ok := timestampOf(obj); ok {
			if ts.Before(cutoff) {
				if s.primary.Remove(k) == nil {
					removed++
				}
			}
			continue
		}

		pruned := 0
		for mk, mv := range obj {
			member, ok := mv.(map[string]any)
			if !ok {
				continue
			}
			if ts, ok := timestampOf(member); ok && ts.Before(cutoff) {
				delete(obj, mk)
				pruned++
			}
		}
		if pruned == 0 {
			continue
		}
		data, err := json.Marshal(obj)
		if err != nil {
			continue
		}
		if err := s.primary.Set(k, string(data)); err != nil {
			s.logger.Warn("storage cleanup rewrite failed", "key", k, "err", err)
			continue
		}
		removed += pruned
	}
	return removed
}

func timestampOf(obj map[string]any) (time.Time, bool) {
	switch v := obj["timestamp"].(type) {
	case float64:
		return time.UnixMilli(int64(v)), true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
