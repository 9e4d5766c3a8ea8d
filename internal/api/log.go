package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"aerosim/pkg/logging"
)

// maxAttrLen drops attribute values (flight ids, paths) too long for the status line.
const maxAttrLen = 20

// logLine is one slog text record split into its parts.
type logLine struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs [][2]string
}

// parseLogLine splits a slog TextHandler line into key=value pairs. Quoted values are unquoted.
// ok is false when the line has no msg key.
func parseLogLine(raw string) (l logLine, ok bool) {
	s := strings.TrimSpace(raw)
	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq <= 0 || strings.ContainsAny(s[:eq], " \"") {
			return l, false
		}
		key := s[:eq]
		s = s[eq+1:]

		var val string
		if strings.HasPrefix(s, `"`) {
			q, err := strconv.QuotedPrefix(s)
			if err != nil {
				return l, false
			}
			val, _ = strconv.Unquote(q)
			s = s[len(q):]
		} else {
			end := strings.IndexByte(s, ' ')
			if end < 0 {
				end = len(s)
			}
			val = s[:end]
			s = s[end:]
		}
		s = strings.TrimLeft(s, " ")
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			l.Time, _ = time.Parse(time.RFC3339, val)
		case "level":
			l.Level = val
		case "msg":
			l.Msg = val
			ok = true
		default:
			l.Attrs = append(l.Attrs, [2]string{key, val})
		}
	}
	return l, ok
}

// formatLogLine renders a record for the status line: "15:04:05 [LEVEL] msg (k=v, ...)".
// INFO is implied. Attributes are sorted by key and long ones dropped. Lines that do not parse are
// returned unchanged.
func formatLogLine(raw string) string {
	l, ok := parseLogLine(raw)
	if !ok {
		return raw
	}

	var b strings.Builder
	if !l.Time.IsZero() {
		b.WriteString(l.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	if l.Level != "" && l.Level != "INFO" {
		b.WriteString(l.Level)
		b.WriteByte(' ')
	}
	b.WriteString(l.Msg)

	sort.Slice(l.Attrs, func(i, j int) bool { return l.Attrs[i][0] < l.Attrs[j][0] })
	sep := " ("
	for _, a := range l.Attrs {
		if len(a[1]) > maxAttrLen {
			continue
		}
		b.WriteString(sep)
		b.WriteString(a[0] + "=" + a[1])
		sep = ", "
	}
	if sep == ", " {
		b.WriteByte(')')
	}
	return b.String()
}

// recentCount reads ?n=, falling back to def for missing or bad values.
func recentCount(r *http.Request, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && n > 0 {
		return n
	}
	return def
}

// handleLatestLog serves GET /api/log/latest.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// handleRecentLog serves GET /api/log/recent?n=N, oldest first.
func handleRecentLog(w http.ResponseWriter, r *http.Request) {
	lines := logging.GlobalLogCapture.Recent(recentCount(r, 10))
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = formatLogLine(l)
	}
	writeJSON(w, map[string][]string{"log": out})
}

// handleRecentEvents serves GET /api/events/recent?n=N, oldest first.
func handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{
		"events": logging.GlobalEventCapture.Recent(recentCount(r, 10)),
	})
}
