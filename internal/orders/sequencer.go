package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/clock"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// Number is an assigned order number: the calendar day and its sequence.
type Number struct {
	Day string
	Seq int
	At  time.Time
}

func (n Number) String() string { return FormatNumber(n.Day, n.Seq) }

// FormatNumber renders "YYYY-MM-DD NNN". Sequences above 999 widen.
func FormatNumber(day string, seq int) string {
	return fmt.Sprintf("%s %03d", day, seq)
}

// ParseNumber splits an order number back into its day and sequence.
func ParseNumber(s string) (day string, seq int, err error) {
	day, rest, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidOrderNumber, s)
	}
	if _, err := time.Parse(dayLayout, day); err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidOrderNumber, s)
	}
	seq, err = strconv.Atoi(rest)
	if err != nil || seq < 1 || len(rest) < 3 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidOrderNumber, s)
	}
	return day, seq, nil
}

// The counter row is created from the day's existing orders, then bumped.
// When the counter lags the records (orders inserted behind its back) the
// derived value wins. The row stays locked until the caller's transaction
// ends, which serializes placements on the same day.
const nextSeqSQL = `
INSERT INTO order_sequences (order_day, last_value)
SELECT CAST(? AS VARCHAR(10)), COALESCE(MAX(order_seq), 0) + 1 FROM orders WHERE order_day = ?
ON CONFLICT (order_day) DO UPDATE SET last_value =
	CASE WHEN order_sequences.last_value >= excluded.last_value
		THEN order_sequences.last_value + 1
		ELSE excluded.last_value END
RETURNING last_value`

// Sequencer hands out per-day order numbers.
type Sequencer struct {
	Clock    clock.Clock
	Location *time.Location
}

func (s Sequencer) now() time.Time {
	c := s.Clock
	if c == nil {
		c = clock.System{}
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return c.Now().In(loc)
}

// Next assigns the next number for today. tx must be the order's
// transaction; a rollback gives the number back.
func (s Sequencer) Next(tx *gorm.DB) (Number, error) {
	now := s.now()
	day := now.Format(dayLayout)

	var seq int
	if err := tx.Raw(nextSeqSQL, day, day).Row().Scan(&seq); err != nil {
		return Number{}, fmt.Errorf("next order sequence for %s: %w", day, err)
	}
	return Number{Day: day, Seq: seq, At: now}, nil
}
