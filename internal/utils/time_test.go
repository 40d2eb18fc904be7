package utils

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string returns local", timezone: "", wantErr: false},
		{name: "Local returns local", timezone: "Local", wantErr: false},
		{name: "valid timezone UTC", timezone: "UTC", wantErr: false},
		{name: "valid timezone Europe/London", timezone: "Europe/London", wantErr: false},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2024, 3, 15, 14, 30, 12, 0, time.UTC)

	start := StartOfDay(ts)
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", start, want)
	}

	end := EndOfDay(ts)
	if want := time.Date(2024, 3, 15, 23, 59, 59, 999000000, time.UTC); !end.Equal(want) {
		t.Errorf("EndOfDay() = %v, want %v", end, want)
	}
	if end.Sub(start) != 24*time.Hour-time.Millisecond {
		t.Errorf("day range = %v, want 24h-1ms", end.Sub(start))
	}
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		b    time.Time
		want bool
	}{
		{name: "same instant", b: a, want: true},
		{name: "end of day", b: EndOfDay(a), want: true},
		{name: "next midnight", b: a.AddDate(0, 0, 1), want: false},
		{name: "same day a year later", b: a.AddDate(1, 0, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSameDay(a, tt.b); got != tt.want {
				t.Errorf("IsSameDay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "empty is today", input: "", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "today", input: "today", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "yesterday", input: "Yesterday", want: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{name: "tomorrow", input: "tomorrow", want: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{name: "explicit date", input: "2024-01-02", want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "invalid", input: "2024/01/02", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDay() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAtTimeOf(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	clock := time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC)
	got := AtTimeOf(day, clock)
	if want := time.Date(2024, 3, 10, 13, 45, 30, 0, time.UTC); !got.Equal(want) {
		t.Errorf("AtTimeOf() = %v, want %v", got, want)
	}
}

func TestWeekStart(t *testing.T) {
	// 2024-03-13 is a Wednesday
	wed := time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		startOfWeek string
		want        time.Time
	}{
		{name: "monday start", startOfWeek: "monday", want: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{name: "sunday start", startOfWeek: "sunday", want: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{name: "unknown falls back to monday", startOfWeek: "friday", want: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(wed, tt.startOfWeek); !got.Equal(tt.want) {
				t.Errorf("WeekStart() = %v, want %v", got, tt.want)
			}
		})
	}

	sunday := time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)
	if got := WeekStart(sunday, "monday"); !got.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WeekStart(sunday, monday) = %v", got)
	}
}

func TestMillisRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 15, 14, 30, 12, 123000000, time.Local)
	if got := FromMillis(ToMillis(ts)); !got.Equal(ts) {
		t.Errorf("FromMillis(ToMillis()) = %v, want %v", got, ts)
	}
}
