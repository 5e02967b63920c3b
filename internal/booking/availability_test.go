package booking

import (
	"context"
	"testing"
	"time"

	"decora_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeLookup struct {
	reserved []time.Time
}

func (f *fakeLookup) ReservedDays(_ context.Context, _ gocql.UUID, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range f.reserved {
		if !d.Before(start) && d.Before(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestOverlapsDemiOuvert(t *testing.T) {
	a := models.RentalRange{Start: day(2026, 1, 1), End: day(2026, 1, 5)}
	b := models.RentalRange{Start: day(2026, 1, 3), End: day(2026, 1, 7)}
	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))

	// Les bornes qui se touchent ne se chevauchent pas
	c := models.RentalRange{Start: day(2026, 1, 5), End: day(2026, 1, 8)}
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))
}

func TestDaysInDemiOuvert(t *testing.T) {
	rng := models.RentalRange{Start: day(2026, 1, 1), End: day(2026, 1, 5)}
	days := DaysIn(rng)
	require.Len(t, days, 4)
	assert.Equal(t, day(2026, 1, 1), days[0])
	assert.Equal(t, day(2026, 1, 4), days[3])
	assert.Equal(t, 4, rng.Days())
}

func TestIsAvailable(t *testing.T) {
	productID := gocql.TimeUUID()
	checker := &Checker{Store: &fakeLookup{reserved: []time.Time{day(2026, 1, 3), day(2026, 1, 4)}}}

	ok, err := checker.IsAvailable(context.Background(), productID,
		models.RentalRange{Start: day(2026, 1, 1), End: day(2026, 1, 3)})
	require.NoError(t, err)
	assert.True(t, ok, "la plage qui s'arrête au premier jour réservé doit passer")

	ok, err = checker.IsAvailable(context.Background(), productID,
		models.RentalRange{Start: day(2026, 1, 2), End: day(2026, 1, 4)})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.IsAvailable(context.Background(), productID,
		models.RentalRange{Start: day(2026, 1, 5), End: day(2026, 1, 9)})
	require.NoError(t, err)
	assert.True(t, ok)
}
