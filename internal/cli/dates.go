package cli

import (
	"fmt"
	"strings"
	"time"
)

type dateKind int

const (
	kindDateTime dateKind = iota
	kindDate
	kindTime
)

var dateLayouts = []struct {
	layout string
	kind   dateKind
}{
	{"2006-01-02 15:04:05", kindDateTime},
	{"2006-01-02 15:04", kindDateTime},
	{"2006-01-02T15:04:05Z07:00", kindDateTime},
	{"2006-01-02", kindDate},
	{"15:04:05", kindTime},
	{"15:04", kindTime},
}

// parseDateTime reads a user supplied date and/or time in loc. A bare
// date gets the time of day from endOfDay (00:00:00 or 23:59:59); a bare
// time is taken on the day of now.
func parseDateTime(s string, now time.Time, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		t, err := time.ParseInLocation(l.layout, s, loc)
		if err != nil {
			continue
		}
		switch l.kind {
		case kindDate:
			if endOfDay {
				return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc), nil
			}
			return t, nil
		case kindTime:
			y, m, d := now.In(loc).Date()
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		default:
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD HH:MM, YYYY-MM-DD or HH:MM", s)
}

func parseFrom(s string, now time.Time, loc *time.Location) (time.Time, error) {
	return parseDateTime(s, now, loc, false)
}

func parseTo(s string, now time.Time, loc *time.Location) (time.Time, error) {
	return parseDateTime(s, now, loc, true)
}

// parseStartArgs splits "start" arguments into a project and tags. With
// Watson-style +tags the project is every word before the first +tag and
// each tag runs until the next one, so "write docs +code review" is
// project "write docs" with tag "code review". Without any +tag the
// first argument is the project and the rest are tags.
func parseStartArgs(args []string) (string, []string) {
	first := -1
	for i, a := range args {
		if strings.HasPrefix(a, "+") {
			first = i
			break
		}
	}
	if first < 0 {
		if len(args) == 0 {
			return "", nil
		}
		return args[0], args[1:]
	}

	project := strings.Join(args[:first], " ")
	var tags []string
	for _, a := range args[first:] {
		if strings.HasPrefix(a, "+") {
			tags = append(tags, strings.TrimPrefix(a, "+"))
			continue
		}
		tags[len(tags)-1] += " " + a
	}
	return project, tags
}

// parseTagFlags strips an optional leading + from tag filter values.
func parseTagFlags(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimPrefix(strings.TrimSpace(v), "+"); v != "" {
			out = append(out, v)
		}
	}
	return out
}
