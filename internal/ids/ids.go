// Package ids generates and inspects the clearinghouse case identifiers.
//
// A PortID is IDA + YYYYMMDDhhmmss + four-digit sequence (21 characters).
// A FolioID is IDA + YYMMDDhhmm + five-digit sequence (18 characters).
package ids

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
)

const (
	PortIDLength  = 21
	FolioIDLength = 18

	portIDTimestampLayout  = "20060102150405"
	folioIDTimestampLayout = "0601021504"

	maxPortIDSequence  = 9999
	maxFolioIDSequence = 99999
)

var (
	idaPattern     = regexp.MustCompile(`^[A-Z0-9]{3}$`)
	portIDPattern  = regexp.MustCompile(`^[A-Z0-9]{3}\d{14}\d{4}$`)
	folioIDPattern = regexp.MustCompile(`^[A-Z0-9]{3}\d{10}\d{5}$`)
)

// Generator produces identifiers stamped with the configured clock in the operator timezone.
type Generator struct {
	loc      *time.Location
	now      func() time.Time
	sequence func(limit int) int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSequence replaces the random sequence source. The function receives the inclusive upper bound.
func WithSequence(sequence func(limit int) int) Option {
	return func(g *Generator) { g.sequence = sequence }
}

func NewGenerator(loc *time.Location, opts ...Option) *Generator {
	if loc == nil {
		loc = time.UTC
	}

	g := &Generator{
		loc:      loc,
		now:      time.Now,
		sequence: func(limit int) int { return rand.IntN(limit) + 1 },
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Generator) PortID(ida string) (string, error) {
	return FormatPortID(ida, g.now().In(g.loc), g.sequence(maxPortIDSequence))
}

func (g *Generator) FolioID(ida string) (string, error) {
	return FormatFolioID(ida, g.now().In(g.loc), g.sequence(maxFolioIDSequence))
}

func FormatPortID(ida string, at time.Time, sequence int) (string, error) {
	if err := ValidateIda(ida); err != nil {
		return "", err
	}

	if sequence < 0 || sequence > maxPortIDSequence {
		return "", model.NewValidationError("port id sequence %d out of range 0-%d", sequence, maxPortIDSequence)
	}

	return fmt.Sprintf("%s%s%04d", ida, at.Format(portIDTimestampLayout), sequence), nil
}

func FormatFolioID(ida string, at time.Time, sequence int) (string, error) {
	if err := ValidateIda(ida); err != nil {
		return "", err
	}

	if sequence < 0 || sequence > maxFolioIDSequence {
		return "", model.NewValidationError("folio id sequence %d out of range 0-%d", sequence, maxFolioIDSequence)
	}

	return fmt.Sprintf("%s%s%05d", ida, at.Format(folioIDTimestampLayout), sequence), nil
}

func ValidateIda(ida string) error {
	if !idaPattern.MatchString(ida) {
		return model.NewValidationError("invalid IDA %q: expected three uppercase alphanumerics", ida)
	}

	return nil
}

func IsValidPortID(id string) bool {
	return len(id) == PortIDLength && portIDPattern.MatchString(id)
}

func IsValidFolioID(id string) bool {
	return len(id) == FolioIDLength && folioIDPattern.MatchString(id)
}

// ExtractIda returns the operator prefix of a PortID or FolioID.
func ExtractIda(id string) string {
	if len(id) < 3 {
		return id
	}

	return id[:3]
}

func ExtractTimestamp(portID string, loc *time.Location) (time.Time, error) {
	if !IsValidPortID(portID) {
		return time.Time{}, model.NewValidationError("invalid port id %q", portID)
	}

	return time.ParseInLocation(portIDTimestampLayout, portID[3:17], locationOrUTC(loc))
}

func ExtractSequence(portID string) (int, error) {
	if !IsValidPortID(portID) {
		return 0, model.NewValidationError("invalid port id %q", portID)
	}

	return strconv.Atoi(portID[17:21])
}

// ExtractFolioTimestamp reads the minute-precision stamp, assuming the 2000s for the two-digit year.
func ExtractFolioTimestamp(folioID string, loc *time.Location) (time.Time, error) {
	if !IsValidFolioID(folioID) {
		return time.Time{}, model.NewValidationError("invalid folio id %q", folioID)
	}

	return time.ParseInLocation("200601021504", "20"+folioID[3:13], locationOrUTC(loc))
}

func ExtractFolioSequence(folioID string) (int, error) {
	if !IsValidFolioID(folioID) {
		return 0, model.NewValidationError("invalid folio id %q", folioID)
	}

	return strconv.Atoi(folioID[13:18])
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}

	return loc
}
