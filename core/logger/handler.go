package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

type format int

const (
	formatJSON format = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// defaultKeyOrder puts identity first, then the order and rate fields the
// bot logs most. Keys not listed follow in alphabetical order.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "update_id", "user_id", "chat_id", "handler",
	"cb_key", "outcome", "duration_ms",
	"order_id", "pair", "path", "symbol", "fee_tier",
	"source_amount", "target_amount", "from", "to", "proof_kind",
	"code", "err_code", "err",
}

// handler renders each record as one line with a stable key order.
type handler struct {
	level slog.Leveler
	out   *lineWriter
	fmt   format
	order []string

	prefix string
	attrs  []field
}

type field struct {
	key string
	val any
}

func newHandler(level slog.Leveler, out *lineWriter, f format, order []string) *handler {
	return &handler{level: level, out: out, fmt: f, order: order}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		c.attrs = appendAttr(c.attrs, h.prefix, a)
	}
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = joinKey(h.prefix, name)
	return &c
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	fields := make([]field, 0, len(h.attrs)+r.NumAttrs()+8)
	fields = append(fields,
		field{"ts", r.Time.UTC().Format(tsLayout)},
		field{"level", r.Level.String()},
	)
	fields = append(fields, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})
	if m, ok := MetaFrom(ctx); ok {
		for _, a := range m.attrs() {
			if !has(fields, a.Key) {
				fields = appendAttr(fields, "", a)
			}
		}
	}
	if !has(fields, "event") {
		ev := r.Message
		if ev == "" {
			ev = "unknown"
		}
		fields = append(fields, field{"event", ev})
	}
	if !has(fields, "component") {
		fields = append(fields, field{"component", CompApp})
	}

	line, err := h.encode(dedupe(fields))
	if err != nil {
		return err
	}
	return h.out.Write(append(line, '\n'))
}

func (h *handler) encode(fields []field) ([]byte, error) {
	rank := make(map[string]int, len(h.order))
	for i, k := range h.order {
		rank[k] = i
	}
	slices.SortStableFunc(fields, func(a, b field) int {
		ra, oka := rank[a.key]
		rb, okb := rank[b.key]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		}
		return strings.Compare(a.key, b.key)
	})

	var b strings.Builder
	if h.fmt == formatKV {
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f.key)
			b.WriteByte('=')
			b.WriteString(kvValue(f.val))
		}
		return []byte(b.String()), nil
	}

	b.WriteByte('{')
	for i, f := range fields {
		raw, err := json.Marshal(f.val)
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", f.key, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(f.key))
		b.WriteByte(':')
		b.Write(raw)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// appendAttr flattens groups and normalizes the value. Empty values are dropped.
func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			dst = appendAttr(dst, key, child)
		}
		return dst
	}
	if key == "" {
		return dst
	}
	key, val, ok := normalize(key, a.Value)
	if !ok {
		return dst
	}
	return append(dst, field{key, val})
}

func normalize(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		s := strings.TrimSpace(v.String())
		if key == "status" || key == "outcome" {
			s = strings.ToLower(s)
		}
		return key, s, s != ""
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindBool:
		return key, v.Bool(), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		s := x.String()
		return key, s, s != ""
	default:
		return key, fmt.Sprint(x), true
	}
}

// msKey renames duration keys so the unit is part of the name.
func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func kvValue(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func has(fields []field, key string) bool {
	return slices.ContainsFunc(fields, func(f field) bool { return f.key == key })
}

// dedupe keeps the last value written for each key.
func dedupe(fields []field) []field {
	seen := make(map[string]int, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if i, ok := seen[f.key]; ok {
			out[i].val = f.val
			continue
		}
		seen[f.key] = len(out)
		out = append(out, f)
	}
	return out
}
