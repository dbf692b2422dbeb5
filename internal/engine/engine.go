package engine

import (
	"fmt"
	"log"
	"sync"

	"TrafficLens/internal/model"
)

// DayFunc is the caller-supplied unit of work for one date's files.
type DayFunc func(date model.Date, files []model.LogFileInfo) (any, error)

// ItemFunc is the caller-supplied unit of work for one batch item.
type ItemFunc func(item any) (any, error)

// Engine runs independent units of work across a bounded worker pool,
// isolating failures per unit. The worker count is a configuration input.
type Engine struct {
	numWorkers int
}

// New creates an Engine with the given worker count.
func New(numWorkers int) *Engine {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Engine{numWorkers: numWorkers}
}

// KeyedOutcome holds the per-date outcomes of a single ProcessByKey call.
// Each date ends up in exactly one of the two maps. A fresh KeyedOutcome is
// returned per call, so one Engine can serve concurrent callers.
type KeyedOutcome struct {
	mu      sync.Mutex
	results map[model.Date]any
	errors  map[model.Date]string
}

// Results returns the success result per date.
func (o *KeyedOutcome) Results() map[model.Date]any {
	return o.results
}

// Errors returns the captured error description per failed date.
func (o *KeyedOutcome) Errors() map[model.Date]string {
	return o.errors
}

func (o *KeyedOutcome) record(date model.Date, result any, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errors[date] = err.Error()
	} else {
		o.results[date] = result
	}
}

// ProcessByKey invokes fn once per date across the worker pool and blocks
// until every date has finished. A failing date is captured in the outcome's
// error map and never affects any other date; no retries are attempted.
func (e *Engine) ProcessByKey(dateFiles map[model.Date][]model.LogFileInfo, fn DayFunc) *KeyedOutcome {
	outcome := &KeyedOutcome{
		results: make(map[model.Date]any, len(dateFiles)),
		errors:  make(map[model.Date]string),
	}

	type job struct {
		date  model.Date
		files []model.LogFileInfo
	}

	jobs := make(chan job)

	var wg sync.WaitGroup
	wg.Add(e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				result, err := invokeDay(fn, j.date, j.files)
				outcome.record(j.date, result, err)
				if err != nil {
					log.Printf("Date %s failed: %v", j.date, err)
				}
			}
		}()
	}

	for date, files := range dateFiles {
		jobs <- job{date: date, files: files}
	}
	close(jobs)
	wg.Wait()

	log.Printf("Keyed processing complete: %d succeeded, %d failed",
		len(outcome.results), len(outcome.errors))
	return outcome
}

// ProcessInBatches partitions items into fixed-size batches and invokes fn
// for each item inside the worker pool. The output has the same length and
// order as the input; an item whose fn fails is represented by a nil
// placeholder at its original index.
func (e *Engine) ProcessInBatches(items []any, fn ItemFunc, batchSize int) []any {
	if batchSize <= 0 {
		batchSize = 1
	}

	results := make([]any, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		e.processBatch(items, results, start, end, fn)
		log.Printf("Batch progress: %d/%d", end, len(items))
	}

	return results
}

func (e *Engine) processBatch(items, results []any, start, end int, fn ItemFunc) {
	indexes := make(chan int)

	var wg sync.WaitGroup
	wg.Add(e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range indexes {
				result, err := invokeItem(fn, items[idx])
				if err != nil {
					log.Printf("Batch item %d failed: %v", idx, err)
					continue
				}
				// Only this worker writes results[idx], no lock needed.
				results[idx] = result
			}
		}()
	}

	for idx := start; idx < end; idx++ {
		indexes <- idx
	}
	close(indexes)
	wg.Wait()
}

// invokeDay runs fn and converts a panic into an ordinary error so that one
// misbehaving unit cannot take down the pool.
func invokeDay(fn DayFunc, date model.Date, files []model.LogFileInfo) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic while processing %s: %v", date, r)
		}
	}()
	return fn(date, files)
}

func invokeItem(fn ItemFunc, item any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic while processing item: %v", r)
		}
	}()
	return fn(item)
}
