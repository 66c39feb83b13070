package gps

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fix accumulates decoded position/time data from the satellite receiver.
// Fields are filled from multiple NMEA sentence types: RMC carries position,
// speed, date and time, GGA carries the satellite count. Each field group
// has its own validity flag because the receiver reports them independently
// before a full fix is achieved.
type Fix struct {
	Latitude  float64 // decimal degrees, south negative
	Longitude float64 // decimal degrees, west negative

	SpeedKnots float64

	Year   int // four-digit year
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int

	Satellites int

	PositionValid bool
	SpeedValid    bool
	DateValid     bool
	TimeValid     bool
	SatsValid     bool

	// Updated is the local receive time of the last sentence that
	// contributed to this fix. Age gating is computed against it.
	Updated time.Time
}

// SpeedMph returns the ground speed in whole miles per hour, rounded to nearest.
func (f Fix) SpeedMph() int {
	return int(f.SpeedKnots*1.15078 + 0.5)
}

// Age returns how long ago the fix was last updated.
func (f Fix) Age(now time.Time) time.Duration {
	if f.Updated.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(f.Updated)
}

// Loggable reports whether the fix is complete and accurate enough to compose
// a log record: position, time and date valid, and at least minSats satellites.
func (f Fix) Loggable(minSats int) bool {
	return f.PositionValid && f.TimeValid && f.DateValid && f.SatsValid &&
		f.Satellites >= minSats
}

// Decoder accumulates a Fix from a stream of NMEA sentences.
type Decoder struct {
	fix Fix
}

// NewDecoder creates an empty decoder. All validity flags start false.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Fix returns the current accumulated fix.
func (d *Decoder) Fix() Fix {
	return d.fix
}

// Sentence feeds one NMEA sentence to the decoder. It returns true if the
// sentence updated the fix. Unsupported sentence types are skipped without
// error; malformed supported sentences return an error and leave the fix
// untouched.
func (d *Decoder) Sentence(line string, now time.Time) (bool, error) {
	line = strings.TrimSpace(line)
	if len(line) < 7 || line[0] != '$' {
		return false, nil
	}

	body, ok := stripChecksum(line[1:])
	if !ok {
		return false, fmt.Errorf("checksum mismatch: %q", line)
	}

	fields := strings.Split(body, ",")
	talker := fields[0]
	if len(talker) < 5 {
		return false, nil
	}

	switch talker[2:] {
	case "RMC":
		return d.decodeRMC(fields, now)
	case "GGA":
		return d.decodeGGA(fields, now)
	}
	return false, nil
}

// decodeRMC handles the Recommended Minimum sentence:
// $GPRMC,hhmmss.ss,A,ddmm.mmmm,N,dddmm.mmmm,E,speed_knots,course,ddmmyy,...
func (d *Decoder) decodeRMC(f []string, now time.Time) (bool, error) {
	if len(f) < 10 {
		return false, fmt.Errorf("RMC: expected at least 10 fields, got %d", len(f))
	}

	// Decode into a local copy; the fix is committed only once the whole
	// sentence parsed cleanly, so a malformed field leaves it untouched.
	next := d.fix

	if h, m, s, err := parseTimeOfDay(f[1]); err == nil {
		next.Hour, next.Minute, next.Second = h, m, s
		next.TimeValid = true
	} else if f[1] != "" {
		return false, err
	}

	if f[2] == "A" {
		lat, err := parseCoordinate(f[3], f[4])
		if err != nil {
			return false, err
		}
		lon, err := parseCoordinate(f[5], f[6])
		if err != nil {
			return false, err
		}
		next.Latitude = lat
		next.Longitude = lon
		next.PositionValid = true

		if f[7] != "" {
			knots, err := strconv.ParseFloat(f[7], 64)
			if err != nil {
				return false, fmt.Errorf("RMC: invalid speed %q: %w", f[7], err)
			}
			next.SpeedKnots = knots
			next.SpeedValid = true
		}
	} else {
		next.PositionValid = false
		next.SpeedValid = false
	}

	if y, mo, dd, err := parseDate(f[9]); err == nil {
		next.Year, next.Month, next.Day = y, mo, dd
		next.DateValid = true
	} else if f[9] != "" {
		return false, err
	}

	next.Updated = now
	d.fix = next
	return true, nil
}

// decodeGGA handles the fix-data sentence; only the satellite count is used:
// $GPGGA,hhmmss.ss,lat,N,lon,E,quality,numsats,hdop,alt,...
func (d *Decoder) decodeGGA(f []string, now time.Time) (bool, error) {
	if len(f) < 8 {
		return false, fmt.Errorf("GGA: expected at least 8 fields, got %d", len(f))
	}

	if f[7] == "" {
		d.fix.SatsValid = false
		return false, nil
	}

	sats, err := strconv.Atoi(f[7])
	if err != nil {
		return false, fmt.Errorf("GGA: invalid satellite count %q: %w", f[7], err)
	}

	d.fix.Satellites = sats
	d.fix.SatsValid = true
	d.fix.Updated = now
	return true, nil
}

// stripChecksum verifies and removes a trailing *hh checksum. Sentences
// without a checksum are accepted as-is (some receivers omit it).
func stripChecksum(body string) (string, bool) {
	idx := strings.LastIndexByte(body, '*')
	if idx < 0 {
		return body, true
	}
	if len(body)-idx != 3 {
		return "", false
	}

	want, err := strconv.ParseUint(body[idx+1:], 16, 8)
	if err != nil {
		return "", false
	}

	var sum byte
	for i := 0; i < idx; i++ {
		sum ^= body[i]
	}
	if sum != byte(want) {
		return "", false
	}
	return body[:idx], true
}

// parseCoordinate converts NMEA ddmm.mmmm / dddmm.mmmm plus hemisphere
// into signed decimal degrees.
func parseCoordinate(value, hemi string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty coordinate")
	}

	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		dot = len(value)
	}
	if dot < 3 {
		return 0, fmt.Errorf("coordinate too short: %q", value)
	}

	deg, err := strconv.ParseFloat(value[:dot-2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid degrees in %q: %w", value, err)
	}
	min, err := strconv.ParseFloat(value[dot-2:], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", value, err)
	}

	result := deg + min/60.0
	switch hemi {
	case "N", "E":
	case "S", "W":
		result = -result
	default:
		return 0, fmt.Errorf("invalid hemisphere %q", hemi)
	}
	return result, nil
}

// parseTimeOfDay converts hhmmss or hhmmss.ss into hour/minute/second.
func parseTimeOfDay(value string) (int, int, int, error) {
	if len(value) < 6 {
		return 0, 0, 0, fmt.Errorf("invalid time %q", value)
	}
	h, err1 := strconv.Atoi(value[0:2])
	m, err2 := strconv.Atoi(value[2:4])
	s, err3 := strconv.Atoi(value[4:6])
	if err1 != nil || err2 != nil || err3 != nil || h > 23 || m > 59 || s > 60 {
		return 0, 0, 0, fmt.Errorf("invalid time %q", value)
	}
	return h, m, s, nil
}

// parseDate converts ddmmyy into year/month/day. Years are mapped into
// 2000-2099; GPS receivers in the field do not report earlier dates.
func parseDate(value string) (int, time.Month, int, error) {
	if len(value) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid date %q", value)
	}
	dd, err1 := strconv.Atoi(value[0:2])
	mm, err2 := strconv.Atoi(value[2:4])
	yy, err3 := strconv.Atoi(value[4:6])
	if err1 != nil || err2 != nil || err3 != nil || dd < 1 || dd > 31 || mm < 1 || mm > 12 {
		return 0, 0, 0, fmt.Errorf("invalid date %q", value)
	}
	return 2000 + yy, time.Month(mm), dd, nil
}
