package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(ss ...string) []Day {
	out := make([]Day, 0, len(ss))
	for _, s := range ss {
		out = append(out, MustParseDay(s))
	}
	return out
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.Equal(t, "2024-01-03", d.String())

	_, err = ParseDay("03/01/2024")
	assert.Error(t, err)

	assert.Equal(t, MustParseDay("2024-03-01"), MustParseDay("2024-02-28").AddDays(2))
	assert.Equal(t, d, DayOf(time.Date(2024, 1, 3, 23, 59, 0, 0, time.FixedZone("IST", 5*3600+1800))))
}

func TestExclusionExcludes(t *testing.T) {
	sat := MustParseDay("2024-01-06")
	sun := MustParseDay("2024-01-07")
	mon := MustParseDay("2024-01-08")

	tests := []struct {
		ex       Exclusion
		sat, sun bool
	}{
		{ExcludeNone, false, false},
		{ExcludeSaturday, true, false},
		{ExcludeSunday, false, true},
		{ExcludeBoth, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.ex), func(t *testing.T) {
			assert.Equal(t, tt.sat, tt.ex.Excludes(sat))
			assert.Equal(t, tt.sun, tt.ex.Excludes(sun))
			assert.False(t, tt.ex.Excludes(mon))
		})
	}

	_, err := ParseExclusion("weekdays")
	assert.Error(t, err)
	ex, err := ParseExclusion("")
	require.NoError(t, err)
	assert.Equal(t, ExcludeNone, ex)
}

func TestGenerateWithoutSkipsYieldsTotal(t *testing.T) {
	start := MustParseDay("2024-01-01")
	for _, ex := range []Exclusion{ExcludeNone, ExcludeSaturday, ExcludeSunday, ExcludeBoth} {
		for total := 0; total <= 40; total++ {
			w := Window{Start: start, End: EndDateFor(start, total, ex), Total: total, Exclusion: ex}
			got := Generate(w)
			require.Len(t, got, total, "exclusion=%s total=%d", ex, total)
			for _, d := range got {
				assert.False(t, ex.Excludes(d), "exclusion=%s produced %s", ex, d)
			}
			if total > 0 {
				assert.Equal(t, w.End, got[len(got)-1])
			}
		}
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		want []Day
	}{
		{
			name: "none visits every day",
			w: Window{
				Start: MustParseDay("2024-01-05"), End: MustParseDay("2024-01-08"),
				Total: 4, Exclusion: ExcludeNone,
			},
			want: days("2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08"),
		},
		{
			name: "weekends passed over",
			w: Window{
				Start: MustParseDay("2024-01-05"), End: MustParseDay("2024-01-09"),
				Total: 3, Exclusion: ExcludeBoth,
			},
			want: days("2024-01-05", "2024-01-08", "2024-01-09"),
		},
		{
			name: "skipped days do not consume a slot",
			w: Window{
				Start: MustParseDay("2024-01-01"), End: MustParseDay("2024-01-08"),
				Total: 6, Exclusion: ExcludeSunday, Skipped: NewDaySet(MustParseDay("2024-01-03")),
			},
			want: days("2024-01-01", "2024-01-02", "2024-01-04", "2024-01-05", "2024-01-06", "2024-01-08"),
		},
		{
			name: "stops at end date",
			w: Window{
				Start: MustParseDay("2024-01-01"), End: MustParseDay("2024-01-02"),
				Total: 10, Exclusion: ExcludeNone,
			},
			want: days("2024-01-01", "2024-01-02"),
		},
		{
			name: "zero total",
			w:    Window{Start: MustParseDay("2024-01-01"), End: MustParseDay("2024-01-31"), Total: 0},
			want: []Day{},
		},
		{
			name: "start after end",
			w:    Window{Start: MustParseDay("2024-02-01"), End: MustParseDay("2024-01-01"), Total: 5},
			want: []Day{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.w))
		})
	}
}

func TestNextDeliveryDay(t *testing.T) {
	w := Window{
		Start:     MustParseDay("2024-01-01"),
		End:       MustParseDay("2024-01-10"),
		Total:     8,
		Exclusion: ExcludeBoth,
		Skipped:   NewDaySet(MustParseDay("2024-01-08")),
	}
	// Friday -> weekend excluded -> Monday skipped -> Tuesday.
	assert.Equal(t, MustParseDay("2024-01-09"), NextDeliveryDay(MustParseDay("2024-01-05"), w))
	assert.Equal(t, MustParseDay("2024-01-03"), NextDeliveryDay(MustParseDay("2024-01-02"), w))
	// May run past the window.
	assert.Equal(t, MustParseDay("2024-01-11"), NextDeliveryDay(MustParseDay("2024-01-10"), w))
}

func TestExtendEnd(t *testing.T) {
	assert.Equal(t, MustParseDay("2024-01-08"), ExtendEnd(MustParseDay("2024-01-06"), ExcludeSunday))
	assert.Equal(t, MustParseDay("2024-01-08"), ExtendEnd(MustParseDay("2024-01-05"), ExcludeBoth))
	assert.Equal(t, MustParseDay("2024-01-06"), ExtendEnd(MustParseDay("2024-01-05"), ExcludeNone))
}

func TestEndDateFor(t *testing.T) {
	assert.Equal(t, MustParseDay("2024-01-06"), EndDateFor(MustParseDay("2024-01-01"), 6, ExcludeSunday))
	assert.Equal(t, MustParseDay("2024-01-08"), EndDateFor(MustParseDay("2024-01-01"), 6, ExcludeBoth))
	// Start on an excluded day walks forward before counting.
	assert.Equal(t, MustParseDay("2024-01-08"), EndDateFor(MustParseDay("2024-01-06"), 1, ExcludeBoth))
	assert.Equal(t, MustParseDay("2024-01-01"), EndDateFor(MustParseDay("2024-01-01"), 0, ExcludeBoth))
}
