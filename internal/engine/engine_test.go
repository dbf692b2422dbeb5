package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"TrafficLens/internal/model"
)

func day(d int) model.Date {
	return model.Date{Year: 2024, Month: time.January, Day: d}
}

func TestProcessByKeyIsolatesFailures(t *testing.T) {
	// 1. Five dates, one of which fails.
	units := make(map[model.Date][]model.LogFileInfo)
	for i := 1; i <= 5; i++ {
		units[day(i)] = nil
	}

	failing := day(3)
	e := New(2)
	outcome := e.ProcessByKey(units, func(date model.Date, files []model.LogFileInfo) (any, error) {
		if date == failing {
			return nil, errors.New("boom")
		}
		return date.String(), nil
	})

	// 2. Exactly one error entry, four successes.
	if len(outcome.Errors()) != 1 {
		t.Fatalf("Expected 1 error, got %d: %v", len(outcome.Errors()), outcome.Errors())
	}
	if msg, ok := outcome.Errors()[failing]; !ok || msg != "boom" {
		t.Errorf("Error for %s = %q", failing, msg)
	}
	if len(outcome.Results()) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(outcome.Results()))
	}
	for date, result := range outcome.Results() {
		if result != date.String() {
			t.Errorf("Result for %s = %v", date, result)
		}
	}
}

func TestProcessByKeyCapturesPanic(t *testing.T) {
	units := map[model.Date][]model.LogFileInfo{day(1): nil}

	e := New(1)
	outcome := e.ProcessByKey(units, func(date model.Date, files []model.LogFileInfo) (any, error) {
		panic("unexpected")
	})

	if len(outcome.Results()) != 0 {
		t.Errorf("Expected no results, got %v", outcome.Results())
	}
	if len(outcome.Errors()) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(outcome.Errors()))
	}
}

func TestProcessByKeyFreshOutcomePerCall(t *testing.T) {
	units := map[model.Date][]model.LogFileInfo{day(1): nil}
	fn := func(date model.Date, files []model.LogFileInfo) (any, error) { return 42, nil }

	e := New(2)
	first := e.ProcessByKey(units, fn)
	second := e.ProcessByKey(units, fn)

	if first == second {
		t.Fatal("Each call should return a fresh outcome")
	}
	if len(first.Results()) != 1 || len(second.Results()) != 1 {
		t.Errorf("Both outcomes should hold the result")
	}
}

func TestProcessInBatchesPreservesOrderAndLength(t *testing.T) {
	items := make([]any, 25)
	for i := range items {
		items[i] = i
	}

	e := New(4)
	results := e.ProcessInBatches(items, func(item any) (any, error) {
		return item.(int) * 10, nil
	}, 10)

	if len(results) != len(items) {
		t.Fatalf("Output length %d, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r != i*10 {
			t.Errorf("results[%d] = %v, want %d", i, r, i*10)
		}
	}
}

func TestProcessInBatchesFailingItemBecomesNil(t *testing.T) {
	items := []any{1, 2, 3, 4, 5}

	e := New(3)
	results := e.ProcessInBatches(items, func(item any) (any, error) {
		n := item.(int)
		if n == 3 {
			return nil, fmt.Errorf("item %d failed", n)
		}
		if n == 5 {
			panic("item 5 panicked")
		}
		return n * 2, nil
	}, 2)

	if len(results) != 5 {
		t.Fatalf("Output length %d, want 5", len(results))
	}
	for i, want := range []any{2, 4, nil, 8, nil} {
		if results[i] != want {
			t.Errorf("results[%d] = %v, want %v", i, results[i], want)
		}
	}
}

func TestProcessInBatchesEmptyInput(t *testing.T) {
	e := New(2)
	results := e.ProcessInBatches(nil, func(item any) (any, error) { return item, nil }, 10)
	if len(results) != 0 {
		t.Fatalf("Expected empty output, got %d", len(results))
	}
}
