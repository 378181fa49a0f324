package rules

import (
	"testing"
	"time"
)

func TestExtendedEndFromNowWhenNoCurrentPeriod(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := ExtendedEnd(now, nil, 30)
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected end date: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestExtendedEndFromCurrentExpiryWhenStillActive(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	current := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	got := ExtendedEnd(now, &current, 90)
	want := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected end date: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestExtendedEndFromNowWhenExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	current := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	got := ExtendedEnd(now, &current, 30)
	want := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected end date: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestExtendedEndIsOrderIndependent(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	first := ExtendedEnd(now, &start, 30)
	oneThenTwo := ExtendedEnd(now, &first, 90)

	second := ExtendedEnd(now, &start, 90)
	twoThenOne := ExtendedEnd(now, &second, 30)

	if !oneThenTwo.Equal(twoThenOne) {
		t.Fatalf("extension order changed the result: %s vs %s", oneThenTwo, twoThenOne)
	}
}

func TestIsActiveRequiresFlagAndFutureEnd(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 5)
	past := now.AddDate(0, 0, -5)

	if !IsActive(now, true, &future) {
		t.Fatal("expected active subscription")
	}
	if IsActive(now, true, &past) {
		t.Fatal("expired end date must read as inactive")
	}
	if IsActive(now, false, &future) {
		t.Fatal("cleared flag must read as inactive")
	}
	if IsActive(now, true, nil) {
		t.Fatal("missing end date must read as inactive")
	}
}

func TestDaysLeftRoundsUp(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)

	if got := DaysLeft(now, &end); got != 3 {
		t.Fatalf("unexpected days left: got %d want 3", got)
	}
	past := now.Add(-time.Hour)
	if got := DaysLeft(now, &past); got != 0 {
		t.Fatalf("expired subscription must report 0 days, got %d", got)
	}
}

func TestDayWindowCoversWholeTargetDay(t *testing.T) {
	now := time.Date(2024, 1, 28, 9, 30, 0, 0, time.UTC)

	start, end := DayWindow(now, 3, time.UTC)
	wantStart := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("unexpected window start: got %s want %s", start, wantStart)
	}
	if !end.After(start) || end.Day() != 31 {
		t.Fatalf("window end must stay inside the target day, got %s", end)
	}
	expiry := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if expiry.Before(start) || expiry.After(end) {
		t.Fatalf("expiry %s must fall inside [%s, %s]", expiry, start, end)
	}
}
