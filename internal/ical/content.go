package ical

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// property is one unfolded content line: NAME;PARAM=V,V:VALUE.
type property struct {
	Line   int
	Name   string
	Params map[string][]string
	Value  string
}

func (p property) Param(name string) string {
	if vs := p.Params[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// IsDate reports whether the property carries a DATE rather than a
// DATE-TIME. VALUE=DATE decides; without it a bare eight-digit value counts
// as a date.
func (p property) IsDate() bool {
	if v := p.Param("VALUE"); v != "" {
		return strings.EqualFold(v, "DATE")
	}
	return len(strings.TrimSpace(p.Value)) == len(dateLayout)
}

// lineReader joins folded physical lines (continuations start with a space
// or tab) and remembers the line number where each logical line begins.
type lineReader struct {
	sc        *bufio.Scanner
	phys      int
	held      string
	heldLine  int
	hasHeld   bool
	exhausted bool
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineReader{sc: sc}
}

func (lr *lineReader) physical() (string, bool) {
	if lr.exhausted || !lr.sc.Scan() {
		lr.exhausted = true
		return "", false
	}
	lr.phys++
	return strings.TrimRight(lr.sc.Text(), "\r"), true
}

// Next returns the next non-empty logical line.
func (lr *lineReader) Next() (string, int, bool) {
	for {
		if !lr.hasHeld {
			s, ok := lr.physical()
			if !ok {
				return "", 0, false
			}
			lr.held, lr.heldLine, lr.hasHeld = s, lr.phys, true
		}
		line, lineNo := lr.held, lr.heldLine
		lr.hasHeld = false
		for {
			s, ok := lr.physical()
			if !ok {
				break
			}
			if s != "" && (s[0] == ' ' || s[0] == '\t') {
				line += s[1:]
				continue
			}
			lr.held, lr.heldLine, lr.hasHeld = s, lr.phys, true
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, lineNo, true
	}
}

func (lr *lineReader) Err() error { return lr.sc.Err() }

// Lines is the number of physical lines read so far.
func (lr *lineReader) Lines() int { return lr.phys }

// parseProperty splits a content line. Colons and semicolons inside quoted
// parameter values do not delimit.
func parseProperty(line string, lineNo int) (property, error) {
	p := property{Line: lineNo, Params: map[string][]string{}}
	quoted := false
	valueAt := -1
	var segments []string
	last := 0
	for i := 0; i < len(line) && valueAt < 0; i++ {
		switch c := line[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == ';':
			segments = append(segments, line[last:i])
			last = i + 1
		case c == ':':
			segments = append(segments, line[last:i])
			valueAt = i + 1
		}
	}
	if valueAt < 0 {
		return p, fmt.Errorf("missing value separator")
	}
	p.Name = strings.ToUpper(strings.TrimSpace(segments[0]))
	if p.Name == "" {
		return p, fmt.Errorf("missing property name")
	}
	for _, seg := range segments[1:] {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			return p, fmt.Errorf("malformed parameter %q", seg)
		}
		var vals []string
		for _, s := range strings.Split(v, ",") {
			vals = append(vals, strings.Trim(s, `"`))
		}
		p.Params[strings.ToUpper(strings.TrimSpace(k))] = vals
	}
	p.Value = line[valueAt:]
	return p, nil
}

// unescapeText decodes a TEXT value. Unknown escapes keep the escaped
// character.
func unescapeText(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' || i+1 == len(v) {
			b.WriteByte(c)
			continue
		}
		i++
		switch v[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// parseDate reads a DATE value as local midnight in loc.
func parseDate(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(v), loc)
}

// parseDateTime reads a DATE-TIME value. A trailing Z means UTC; otherwise
// the value is wall time in tzid when that zone loads, else in loc. The
// result is expressed in loc.
func parseDateTime(v, tzid string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(utcLayout, v)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}
	in := loc
	if tzid != "" {
		if z, err := time.LoadLocation(tzid); err == nil {
			in = z
		}
	}
	t, err := time.ParseInLocation(floatingLayout, v, in)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// parseStamp reads a DTSTART/DTEND/EXDATE value of the given kind.
func parseStamp(v string, isDate bool, tzid string, loc *time.Location) (time.Time, error) {
	if isDate {
		return parseDate(v, loc)
	}
	if len(strings.TrimSpace(v)) == len(dateLayout) {
		return time.Time{}, fmt.Errorf("date value %q where date-time expected", v)
	}
	return parseDateTime(v, tzid, loc)
}

// parseDuration reads a positive DURATION value. Untimed items only honour
// the week and day parts.
func parseDuration(v string, timed bool) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative duration")
	}
	s = strings.TrimPrefix(s, "+")
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("missing P designator")
	}
	s = s[1:]
	var total time.Duration
	inTime := false
	num := ""
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			num += string(c)
			continue
		case c == 'T':
			if num != "" || inTime {
				return 0, fmt.Errorf("misplaced T")
			}
			inTime = true
			continue
		}
		if num == "" {
			return 0, fmt.Errorf("missing number before %c", c)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, err
		}
		num = ""
		unit := time.Duration(0)
		switch {
		case c == 'W' && !inTime:
			unit = 7 * 24 * time.Hour
		case c == 'D' && !inTime:
			unit = 24 * time.Hour
		case c == 'H' && inTime:
			unit = time.Hour
		case c == 'M' && inTime:
			unit = time.Minute
		case c == 'S' && inTime:
			unit = time.Second
		default:
			return 0, fmt.Errorf("unexpected designator %c", c)
		}
		if inTime && !timed {
			continue
		}
		total += time.Duration(n) * unit
	}
	if num != "" {
		return 0, fmt.Errorf("trailing number %s", num)
	}
	if total <= 0 {
		return 0, fmt.Errorf("zero duration")
	}
	return total, nil
}

// formatDuration writes d as P<days>DT<h>H<m>M<s>S.
func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("P%dDT%dH%dM%dS", secs/86400, secs/3600%24, secs/60%60, secs%60)
}
