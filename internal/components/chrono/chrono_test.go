package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		now    time.Time
		expect string
	}{
		{now: time.Date(2024, time.August, 26, 0, 0, 0, 0, saoPaulo), expect: "20240826"},
		{now: time.Date(2024, time.August, 26, 23, 59, 59, 0, saoPaulo), expect: "20240826"},
		{now: time.Date(2021, time.January, 3, 12, 0, 0, 0, saoPaulo), expect: "20210103"},
		// 01:00 UTC is still the previous day in Sao Paulo
		{now: time.Date(2024, time.August, 27, 1, 0, 0, 0, time.UTC).In(saoPaulo), expect: "20240826"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, Day(test.now))
	}
}

func TestFixedImpl(t *testing.T) {
	clock := &FixedImpl{Time: time.Date(2024, time.August, 26, 23, 0, 0, 0, time.UTC)}
	require.Equal(t, "20240826", Today(clock))

	clock.Advance(2 * time.Hour)
	require.Equal(t, "20240827", Today(clock))
	require.Equal(t, time.UTC, clock.Location())
}

func TestStandardImpl(t *testing.T) {
	clock, err := NewStandardImpl()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "America/Sao_Paulo", clock.Location().String())
	require.Equal(t, clock.Location(), clock.Now().Location())
}
