package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

const DateLayout = "2006-01-02"

// Clock is a time of day in whole minutes after midnight.
type Clock int

func ParseClock(raw string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: time must be HH:MM (got %q)", model.ErrValidation, raw)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate accepts YYYY-MM-DD and returns midnight UTC of that day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", model.ErrValidation)
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD (got %q)", model.ErrValidation, raw)
	}
	return d, nil
}

// Config describes the salon's opening hours and slot size.
type Config struct {
	Open     Clock
	Close    Clock
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Open: 9 * 60, Close: 17 * 60, Interval: 30 * time.Minute}
}

func (c Config) Validate() error {
	if c.Interval < time.Minute || c.Interval%time.Minute != 0 {
		return fmt.Errorf("slot interval must be a positive whole number of minutes (got %s)", c.Interval)
	}
	if c.Open < 0 || c.Close > 24*60 || c.Close <= c.Open {
		return fmt.Errorf("opening hours %s-%s are invalid", c.Open, c.Close)
	}
	return nil
}

// SlotStatus is what a client sees for one slot of the day.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = SlotStatus(model.StatusPending)
	SlotApproved  SlotStatus = SlotStatus(model.StatusApproved)
	SlotCancelled SlotStatus = SlotStatus(model.StatusCancelled)
)

// Calendar turns a Config into the bookable grid. It is pure and safe for
// concurrent use.
type Calendar struct {
	cfg Config
}

func NewCalendar(cfg Config) (*Calendar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calendar{cfg: cfg}, nil
}

func (c *Calendar) Config() Config { return c.cfg }

// EnumerateSlots returns every slot start of the day in chronological order.
// A slot is only offered if it ends by closing time. Every date shares the
// same grid.
func (c *Calendar) EnumerateSlots(_ time.Time) []Clock {
	return c.freeSlots(nil)
}

func (c *Calendar) step() int { return int(c.cfg.Interval / time.Minute) }

// OnGrid reports whether t is one of the enumerated slot starts.
func (c *Calendar) OnGrid(t Clock) bool {
	step := Clock(c.step())
	return t >= c.cfg.Open && t+step <= c.cfg.Close && (t-c.cfg.Open)%step == 0
}

// AvailableSlots returns the enumerated slots of date that no approved
// appointment occupies. Approved times off the grid never hide a slot.
func (c *Calendar) AvailableSlots(_ time.Time, approved []Clock) []Clock {
	busy := make([]Span, 0, len(approved))
	for _, t := range approved {
		if !c.OnGrid(t) {
			continue
		}
		busy = append(busy, Span{Start: t, End: t + Clock(c.step())})
	}
	return c.freeSlots(busy)
}

func (c *Calendar) freeSlots(busy []Span) []Clock {
	out := FreeStarts(c.cfg.Open, c.cfg.Close, c.step(), c.step(), busy)
	if out == nil {
		out = []Clock{}
	}
	return out
}

// SlotsWithStatus maps every enumerated slot to available or to the status of
// the appointment holding it. When several appointments share a slot the
// approved one wins, then pending, then cancelled; among equals the most
// recently updated wins. Appointments on other dates or off the grid are ignored.
func (c *Calendar) SlotsWithStatus(date time.Time, appts []model.Appointment) map[Clock]SlotStatus {
	out := map[Clock]SlotStatus{}
	for _, s := range c.EnumerateSlots(date) {
		out[s] = SlotAvailable
	}

	day := date.Format(DateLayout)
	winners := map[Clock]model.Appointment{}
	for _, a := range appts {
		if a.Date != day {
			continue
		}
		t, err := ParseClock(a.Time)
		if err != nil {
			continue
		}
		if _, ok := out[t]; !ok {
			continue
		}
		if cur, ok := winners[t]; !ok || outranks(a, cur) {
			winners[t] = a
		}
	}
	for t, a := range winners {
		out[t] = SlotStatus(a.Status)
	}
	return out
}

func outranks(a, b model.Appointment) bool {
	if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
		return ra > rb
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

func statusRank(s model.Status) int {
	switch s {
	case model.StatusApproved:
		return 3
	case model.StatusPending:
		return 2
	case model.StatusCancelled:
		return 1
	default:
		return 0
	}
}

// SortedClocks returns the keys of m in chronological order.
func SortedClocks[V any](m map[Clock]V) []Clock {
	out := make([]Clock, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings formats clocks as HH:MM.
func Strings(cs []Clock) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
