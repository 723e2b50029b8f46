package schedule

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"08:00", NewClock(8, 0), false},
		{"8:05", NewClock(8, 5), false},
		{" 13:45 ", NewClock(13, 45), false},
		{"09:30:59", NewClock(9, 30), false},
		{"00:00", 0, false},
		{"24:00", minutesPerDay, false},
		{"24:01", 0, true},
		{"12:60", 0, true},
		{"12:5", 0, true},
		{"-1:00", 0, true},
		{"noon", 0, true},
		{"12", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClock(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClock_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Start Clock `json:"start"`
	}{NewClock(7, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start": "07:05"}`, string(data))

	var got struct {
		Start Clock `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start": "14:30"}`), &got))
	assert.Equal(t, NewClock(14, 30), got.Start)

	assert.Error(t, json.Unmarshal([]byte(`{"start": 870}`), &got))
	assert.Error(t, json.Unmarshal([]byte(`{"start": "25:00"}`), &got))
}

func TestClock_Scan(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan("10:15"))
	assert.Equal(t, NewClock(10, 15), c)

	require.NoError(t, c.Scan([]byte("11:20")))
	assert.Equal(t, NewClock(11, 20), c)

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 16, 40, 0, 0, time.UTC)))
	assert.Equal(t, NewClock(16, 40), c)

	assert.Error(t, c.Scan(42))

	v, err := NewClock(9, 0).Value()
	require.NoError(t, err)
	assert.Equal(t, "09:00", v)
}

func TestClock_On(t *testing.T) {
	day := time.Date(2026, time.March, 2, 17, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 8, 30, 0, 0, time.UTC), NewClock(8, 30).On(day))
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Monday))
	assert.Equal(t, Saturday, WeekdayOf(time.Saturday))
	assert.Equal(t, Sunday, WeekdayOf(time.Sunday))

	assert.Equal(t, "Monday", Monday.String())
	assert.Equal(t, "Sunday", Sunday.String())
	assert.Equal(t, "Weekday(0)", Weekday(0).String())
	assert.False(t, Weekday(8).Valid())
}
