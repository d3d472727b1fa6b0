package main

import (
	"sort"
	"time"
)

// Structs

// summary describes a series of measured durations.
type summary struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
}

// Functions

// summarize computes the summary of ds. Percentiles use
// the nearest rank.
func summarize(ds []time.Duration) summary {

	if len(ds) == 0 {
		return summary{}
	}

	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	rank := func(p int) time.Duration {

		i := ((p * len(sorted)) + 99) / 100
		if i < 1 {
			i = 1
		}

		return sorted[(i - 1)]
	}

	return summary{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[(len(sorted) - 1)],
		Mean:  (total / time.Duration(len(sorted))),
		P50:   rank(50),
		P90:   rank(90),
	}
}
