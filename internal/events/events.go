// Package events provides the per-step event queue used for scheduled state
// transitions and travel returns. Steps are hours: step = 24*day + hour.
package events

import "fmt"

// Queue holds one bucket of items per simulation step. The item type T is a
// pointer-like identity; deletion matches by equality.
type Queue[T comparable] struct {
	buckets [][]T
}

// NewQueue creates a queue sized to the given number of steps, normally
// 24 * simulation days.
func NewQueue[T comparable](steps int) *Queue[T] {
	return &Queue[T]{buckets: make([][]T, steps)}
}

// Steps returns the queue capacity in steps.
func (q *Queue[T]) Steps() int {
	return len(q.buckets)
}

// Add appends an item to the bucket for the given step. Steps outside the
// simulation window are silently dropped; they can never fire.
func (q *Queue[T]) Add(step int, item T) {
	if step < 0 || step >= len(q.buckets) {
		return
	}
	q.buckets[step] = append(q.buckets[step], item)
}

// Delete removes an item from the bucket for the given step by swapping in
// the last element. A missing item is a scheduling bug and panics.
func (q *Queue[T]) Delete(step int, item T) {
	if step < 0 || step >= len(q.buckets) {
		return
	}
	bucket := q.buckets[step]
	for pos, candidate := range bucket {
		if candidate == item {
			bucket[pos] = bucket[len(bucket)-1]
			q.buckets[step] = bucket[:len(bucket)-1]
			return
		}
	}
	panic(fmt.Sprintf("events: delete of absent item at step %d", step))
}

// Size returns the number of items scheduled at the given step.
func (q *Queue[T]) Size(step int) int {
	if step < 0 || step >= len(q.buckets) {
		return 0
	}
	return len(q.buckets[step])
}

// Get returns the i-th item scheduled at the given step.
func (q *Queue[T]) Get(step, i int) T {
	return q.buckets[step][i]
}

// Events returns the live bucket for the given step. Callers that mutate
// the queue while iterating should copy it first.
func (q *Queue[T]) Events(step int) []T {
	if step < 0 || step >= len(q.buckets) {
		return nil
	}
	return q.buckets[step]
}

// Clear drops the bucket for the given step.
func (q *Queue[T]) Clear(step int) {
	if step < 0 || step >= len(q.buckets) {
		return
	}
	q.buckets[step] = nil
}
