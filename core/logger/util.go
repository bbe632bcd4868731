package logger

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Status maps err to the status value used in every event.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins up to limit values and reports whether some were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}

// SanitizeLimit drops control and format runes (tab and newline survive)
// and truncates the result to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// sampler lets num out of every den events through.
type sampler struct {
	mu       sync.Mutex
	num, den int
	n        int
	all      bool
}

func newSampler(num, den int) *sampler {
	return &sampler{num: num, den: den}
}

// configure parses "1/50" or "50" (meaning 1/50). "0" disables debug
// sampling, which lets every event through, as does trace.
func (s *sampler) configure(rule string, trace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
	s.all = trace
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return
	}
	num, den := 1, 0
	if a, b, ok := strings.Cut(rule, "/"); ok {
		x, err1 := strconv.Atoi(strings.TrimSpace(a))
		y, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return
		}
		num, den = x, y
	} else if v, err := strconv.Atoi(rule); err == nil {
		den = v
	} else {
		return
	}
	if num <= 0 || den <= 0 {
		s.all = true
		return
	}
	s.num, s.den = min(num, den), den
}

func (s *sampler) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.all || s.den <= 0 {
		return true
	}
	s.n = s.n%s.den + 1
	return s.n <= s.num
}
