// Package timehandler keeps the simulated clock of a survey run.
package timehandler

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

var (
	ErrInvalidUnit       = errors.New("invalid time unit")
	ErrNegativeIncrement = errors.New("negative time increment")
	ErrMalformedDate     = errors.New("malformed initial date")
)

const (
	// DateLayout is the accepted initial date format
	DateLayout = "2006-01-02"
	// ISOLayout is the rendering of timestamps
	ISOLayout = "2006-01-02T15:04:05"
)

// Unit names accepted by UpdateTime and FutureTimeString
const (
	Seconds = "seconds"
	Minutes = "minutes"
	Hours   = "hours"
	Days    = "days"
)

// TimeHandler is a monotonic simulated-time cursor starting at UTC midnight
// of the initial date.
type TimeHandler struct {
	clock *utils.SimTime
}

// New builds a handler from a YYYY-MM-DD date
func New(initialDate string) (*TimeHandler, error) {
	initial, err := time.ParseInLocation(DateLayout, strings.TrimSpace(initialDate), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedDate, initialDate, err)
	}
	return NewFromTime(initial), nil
}

// NewFromTime builds a handler whose initial epoch is t in UTC
func NewFromTime(t time.Time) *TimeHandler {
	return &TimeHandler{clock: utils.NewSimTime(t.UTC())}
}

// ToSeconds converts increment of unit into seconds
func ToSeconds(increment float64, unit string) (float64, error) {
	switch strings.ToLower(unit) {
	case Seconds, "second", "s":
		return increment, nil
	case Minutes, "minute", "m":
		return increment * 60, nil
	case Hours, "hour", "h":
		return increment * 3600, nil
	case Days, "day", "d":
		return increment * 86400, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
}

// InitialDateTime is the initial epoch
func (th *TimeHandler) InitialDateTime() time.Time {
	return th.clock.Start()
}

// CurrentDateTime is the cursor
func (th *TimeHandler) CurrentDateTime() time.Time {
	return th.clock.Now()
}

// InitialTimestamp is the POSIX seconds of the initial epoch
func (th *TimeHandler) InitialTimestamp() float64 {
	return Timestamp(th.clock.Start())
}

// CurrentTimestamp is the POSIX seconds of the cursor
func (th *TimeHandler) CurrentTimestamp() float64 {
	return Timestamp(th.clock.Now())
}

// UpdateTime advances the cursor by increment of unit
func (th *TimeHandler) UpdateTime(increment float64, unit string) error {
	secs, err := ToSeconds(increment, unit)
	if err != nil {
		return err
	}
	if secs < 0 || math.IsNaN(secs) {
		return fmt.Errorf("%w: %v %s", ErrNegativeIncrement, increment, unit)
	}
	return th.clock.Advance(utils.SecondsToDuration(secs))
}

// AdvanceTo moves the cursor forward to ts. Earlier timestamps leave it unchanged.
func (th *TimeHandler) AdvanceTo(ts float64) {
	th.clock.AdvanceTo(FromTimestamp(ts))
}

// CurrentTimeString renders the cursor as ISO-8601
func (th *TimeHandler) CurrentTimeString() string {
	return th.clock.Now().Format(ISOLayout)
}

// FutureTimeString renders cursor + increment without moving the cursor
func (th *TimeHandler) FutureTimeString(increment float64, unit string) (string, error) {
	return th.FutureTimeStringFrom(th.CurrentTimestamp(), increment, unit)
}

// FutureTimeStringFrom renders ts + increment
func (th *TimeHandler) FutureTimeStringFrom(ts, increment float64, unit string) (string, error) {
	secs, err := ToSeconds(increment, unit)
	if err != nil {
		return "", err
	}
	return FromTimestamp(ts + secs).Format(ISOLayout), nil
}

// TimeSinceStart is the elapsed simulated seconds
func (th *TimeHandler) TimeSinceStart() float64 {
	return th.clock.Elapsed().Seconds()
}

// TimeSinceGiven is the seconds between ts and the cursor
func (th *TimeHandler) TimeSinceGiven(ts float64) float64 {
	return th.CurrentTimestamp() - ts
}

// TimeSinceGivenDateTime is the signed difference between the cursor and dt.
// With reverse set the sign is flipped.
func (th *TimeHandler) TimeSinceGivenDateTime(dt time.Time, reverse bool) float64 {
	offset := th.clock.Offset(dt).Seconds()
	if reverse {
		return -offset
	}
	return offset
}

// HasTimeElapsed reports whether span seconds have passed since the start
func (th *TimeHandler) HasTimeElapsed(span float64) bool {
	return th.TimeSinceStart() >= span
}

// Timestamp converts t to fractional POSIX seconds
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromTimestamp converts fractional POSIX seconds to UTC
func FromTimestamp(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
