package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/clock"
	"github.com/ariefcatur/go-storefront/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2024-06-01 001", FormatNumber("2024-06-01", 1))
	assert.Equal(t, "2024-06-01 042", FormatNumber("2024-06-01", 42))
	assert.Equal(t, "2024-06-01 1000", FormatNumber("2024-06-01", 1000))
}

func TestParseNumber(t *testing.T) {
	day, seq, err := ParseNumber("2024-06-01 007")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", day)
	assert.Equal(t, 7, seq)

	day, seq, err = ParseNumber("2024-06-01 1234")
	require.NoError(t, err)
	assert.Equal(t, 1234, seq)
	assert.Equal(t, "2024-06-01", day)

	for _, bad := range []string{"", "2024-06-01", "2024-06-01 7", "2024-13-01 001", "2024-06-01 abc", "2024-06-01 000"} {
		_, _, err := ParseNumber(bad)
		assert.ErrorIs(t, err, ErrInvalidOrderNumber, bad)
	}
}

func nextIn(t *testing.T, db *gorm.DB, s Sequencer) Number {
	t.Helper()
	var n Number
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = s.Next(tx)
		return err
	}))
	return n
}

func TestSequencerCountsPerDay(t *testing.T) {
	db := testdb.Open(t, Models()...)
	clk := clock.NewFake(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC))
	s := Sequencer{Clock: clk, Location: time.UTC}

	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, nextIn(t, db, s).String())
	}
	assert.Equal(t, []string{"2024-06-01 001", "2024-06-01 002", "2024-06-01 003"}, got)

	clk.Advance(2 * time.Hour)
	assert.Equal(t, "2024-06-02 001", nextIn(t, db, s).String())
}

func TestSequencerUsesConfiguredZone(t *testing.T) {
	db := testdb.Open(t, Models()...)
	kolkata := time.FixedZone("IST", 5*3600+1800)
	clk := clock.NewFake(time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC))

	n := nextIn(t, db, Sequencer{Clock: clk, Location: kolkata})
	assert.Equal(t, "2024-06-02", n.Day)
}

func TestSequencerFollowsExistingOrders(t *testing.T) {
	db := testdb.Open(t, Models()...)
	clk := clock.NewFake(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	s := Sequencer{Clock: clk, Location: time.UTC}

	for _, seq := range []int{4, 7} {
		require.NoError(t, db.Create(&Order{
			OrderNumber:   FormatNumber("2024-06-01", seq),
			OrderDay:      "2024-06-01",
			OrderSeq:      seq,
			OrderDate:     clk.Now(),
			TotalAmount:   decimal.Zero,
			Status:        StatusPending,
			PaymentMethod: PaymentCash,
		}).Error)
	}
	assert.Equal(t, 8, nextIn(t, db, s).Seq)

	// counter behind the records
	require.NoError(t, db.Model(&DaySequence{}).Where("order_day = ?", "2024-06-01").Update("last_value", 2).Error)
	assert.Equal(t, 8, nextIn(t, db, s).Seq)

	// counter ahead of the records
	require.NoError(t, db.Model(&DaySequence{}).Where("order_day = ?", "2024-06-01").Update("last_value", 20).Error)
	assert.Equal(t, 21, nextIn(t, db, s).Seq)
}

func TestSequencerRollbackReturnsNumber(t *testing.T) {
	db := testdb.Open(t, Models()...)
	s := Sequencer{Clock: clock.NewFake(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)), Location: time.UTC}

	errAbort := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		n, err := s.Next(tx)
		require.NoError(t, err)
		assert.Equal(t, 1, n.Seq)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	assert.Equal(t, 1, nextIn(t, db, s).Seq)
}
