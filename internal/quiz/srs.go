package quiz

import (
	"errors"
	"time"
)

// DefaultIntervals is the review ladder in days, indexed by level.
var DefaultIntervals = []int{1, 3, 7, 21, 60, 180}

type Scheduler struct {
	intervals []int
}

func NewScheduler(days []int) (Scheduler, error) {
	if len(days) == 0 {
		return Scheduler{}, errors.New("srs: at least one interval is required")
	}
	prev := 0
	for _, d := range days {
		if d <= 0 || d < prev {
			return Scheduler{}, errors.New("srs: intervals must be positive and non-decreasing")
		}
		prev = d
	}
	intervals := make([]int, len(days))
	copy(intervals, days)
	return Scheduler{intervals: intervals}, nil
}

func (s Scheduler) MaxLevel() int {
	return len(s.intervals) - 1
}

func (s Scheduler) Interval(level int) time.Duration {
	if level < 0 {
		level = 0
	}
	if level > s.MaxLevel() {
		level = s.MaxLevel()
	}
	return time.Duration(s.intervals[level]) * 24 * time.Hour
}

// Next applies one answer to an item. A wrong answer drops the item back to
// level 0; a correct one moves it up a level, capped at the last interval.
func (s Scheduler) Next(item ReviewItem, correct bool, now time.Time) ReviewItem {
	if correct {
		item.Level++
		if item.Level > s.MaxLevel() {
			item.Level = s.MaxLevel()
		}
	} else {
		item.Level = 0
	}
	item.LastCorrect = correct
	item.DueAt = now.Add(s.Interval(item.Level))
	item.UpdatedAt = now
	return item
}
