// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package formula holds the single definition of every hatchery rate.
// All rates are percentages in [0,100]; a zero or negative denominator yields 0.
package formula

import "math"

// Performance buckets for fertility and hatch percentages
const (
	ExcellentThreshold = 90.0
	GoodThreshold      = 80.0
	AverageThreshold   = 70.0
)

// Bucket names
const (
	BucketExcellent = "excellent"
	BucketGood      = "good"
	BucketAverage   = "average"
	BucketPoor      = "poor"
)

// Percent returns numerator/denominator*100 clamped to [0,100].
func Percent(numerator, denominator float64) float64 {
	if denominator <= 0 || math.IsNaN(numerator) || math.IsNaN(denominator) {
		return 0
	}
	return Clamp(numerator / denominator * 100)
}

// Clamp bounds a percentage to [0,100]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Fertility is the share of sampled eggs that were fertile.
func Fertility(fertileEggs, sampleSize float64) float64 {
	return Percent(fertileEggs, sampleSize)
}

// Hatch is hatch of eggs set.
func Hatch(chicksHatched, eggsSet float64) float64 {
	return Percent(chicksHatched, eggsSet)
}

// HatchOfFertile uses fertile eggs as the denominator.
func HatchOfFertile(chicksHatched, fertileEggs float64) float64 {
	return Percent(chicksHatched, fertileEggs)
}

// HatchOfInjection uses eggs injected as the denominator.
func HatchOfInjection(chicksHatched, eggsInjected float64) float64 {
	return Percent(chicksHatched, eggsInjected)
}

// Utilization is active linked batches over machine capacity, rounded to
// one decimal. Capacity 0 reports 0%.
func Utilization(active, capacity float64) float64 {
	return Round1(Percent(active, capacity))
}

// Bucket classifies a percentage into a performance bucket.
func Bucket(pct float64) string {
	switch {
	case pct >= ExcellentThreshold:
		return BucketExcellent
	case pct >= GoodThreshold:
		return BucketGood
	case pct >= AverageThreshold:
		return BucketAverage
	default:
		return BucketPoor
	}
}

// InRange reports whether v is a valid percentage.
func InRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}
