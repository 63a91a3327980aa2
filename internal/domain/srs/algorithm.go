package srs

import (
	"time"

	"github.com/phrazzld/recall-api/internal/domain"
)

// resolveIntervals picks the interval list an item is scheduled on.
// A missing curve, or one with an unusable interval list, falls back to the
// standard curve.
func resolveIntervals(curve *domain.ReviewCurve, params *Params) []int {
	if curve == nil || domain.ValidateIntervals(curve.Intervals) != nil {
		return params.StandardIntervals
	}
	return curve.Intervals
}

// intervalAt returns the wait for stage in minutes. Stage 0 of an empty list
// uses the fallback first interval.
func intervalAt(intervals []int, stage int, params *Params) int {
	if len(intervals) == 0 {
		return params.FallbackFirstMinutes
	}
	if stage >= len(intervals) {
		stage = len(intervals) - 1
	}
	return intervals[stage]
}

func addMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

func copyItem(item *domain.MemoryItem, now time.Time) *domain.MemoryItem {
	next := *item
	next.ImagePaths = append([]string(nil), item.ImagePaths...)
	next.UpdatedAt = now.UTC()
	return &next
}

// calculateStart puts an item on the first stage of its curve.
func calculateStart(item *domain.MemoryItem, intervals []int, now time.Time, params *Params) *domain.MemoryItem {
	now = now.UTC()
	next := copyItem(item, now)
	next.Status = domain.ItemStatusReviewing
	next.StageIndex = 0
	next.NextReviewAt = addMinutes(now, intervalAt(intervals, 0, params))
	next.LastReviewAt = &now
	return next
}

// calculateRemembered advances an item one stage, completing it after the
// last stage.
func calculateRemembered(item *domain.MemoryItem, intervals []int, now time.Time, params *Params) *domain.MemoryItem {
	now = now.UTC()
	next := copyItem(item, now)
	next.LastReviewAt = &now

	stage := item.StageIndex + 1
	if stage >= len(intervals) {
		next.Status = domain.ItemStatusCompleted
		next.NextReviewAt = domain.FarFuture
		return next
	}

	next.Status = domain.ItemStatusReviewing
	next.StageIndex = stage
	next.NextReviewAt = addMinutes(now, intervalAt(intervals, stage, params))
	return next
}

// calculateForgot sends an item back to the first stage.
func calculateForgot(item *domain.MemoryItem, intervals []int, now time.Time, params *Params) *domain.MemoryItem {
	now = now.UTC()
	next := copyItem(item, now)
	next.Status = domain.ItemStatusReviewing
	next.StageIndex = 0
	next.NextReviewAt = addMinutes(now, intervalAt(intervals, 0, params))
	next.LastReviewAt = &now
	return next
}

// calculateResume re-enters review at the item's current stage, clamped to
// the curve in case the curve was shortened while the item was paused.
func calculateResume(item *domain.MemoryItem, intervals []int, now time.Time, params *Params) *domain.MemoryItem {
	now = now.UTC()
	next := copyItem(item, now)
	stage := item.StageIndex
	if len(intervals) > 0 && stage >= len(intervals) {
		stage = len(intervals) - 1
	}
	if stage < 0 {
		stage = 0
	}
	next.Status = domain.ItemStatusReviewing
	next.StageIndex = stage
	next.NextReviewAt = addMinutes(now, intervalAt(intervals, stage, params))
	return next
}
