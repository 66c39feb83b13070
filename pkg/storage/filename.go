package storage

import (
	"fmt"
	"time"
)

// maxNameAttempts bounds the sequence search. If every sequence value is
// taken, the maximal one is returned even though it may collide; bounded
// cost wins over absolute uniqueness here.
const maxNameAttempts = 100

// AllocateName proposes a log file name unique on the volume. The template
// is TYMMDDnn.CSV: 'T', the last digit of the year, two-digit month and day,
// and a two-digit sequence counter tried from 00 upward. Zero-valued date
// fields (no time fix yet) produce zeros.
//
// The result always satisfies legacy 8.3 short-name constraints: eight
// uppercase characters, a three-character extension, no punctuation, so it
// stays valid on minimal filesystem drivers.
func AllocateName(year int, month time.Month, day int, vol Volume) string {
	name := ""
	for seq := 0; seq < maxNameAttempts; seq++ {
		name = fmt.Sprintf("T%d%02d%02d%02d.CSV", year%10, int(month)%100, day%100, seq)
		if !vol.Exists(name) {
			return name
		}
	}
	// Every sequence value taken: explicit collision fallback.
	return name
}
