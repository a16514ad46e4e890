// Package srs implements the SM-2 spaced-repetition scheduler.
package srs

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/studynexus/nexus/internal/models"
)

// Scheduler constants.
const (
	InitialEase = 2.5
	MinEase     = 1.3
	MaxQuality  = 5
	PassQuality = 3

	Day = 24 * time.Hour
)

// NewItem returns a fresh item that is due immediately.
func NewItem(now time.Time) models.SRSItem {
	return models.SRSItem{
		EaseFactor: InitialEase,
		NextReview: now,
	}
}

// Review applies one SM-2 step for the given quality rating and returns the
// updated item. Qualities outside 0..5 are rejected and item is returned as is.
func Review(item models.SRSItem, quality int, now time.Time) (models.SRSItem, error) {
	if quality < 0 || quality > MaxQuality {
		return item, fmt.Errorf("%w: got %d", models.ErrInvalidQuality, quality)
	}

	miss := float64(MaxQuality - quality)
	ease := math.Max(MinEase, item.EaseFactor+(0.1-miss*(0.08+miss*0.02)))

	reps := item.Repetitions
	interval := item.Interval

	if quality < PassQuality {
		reps = 0
		interval = 1
	} else {
		reps++

		switch reps {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.Round(float64(interval) * ease))
		}
	}

	return models.SRSItem{
		EaseFactor:  ease,
		Interval:    interval,
		Repetitions: reps,
		LastReview:  now,
		NextReview:  now.Add(time.Duration(interval) * Day),
		Mastery:     Mastery(reps, ease),
	}, nil
}

// Mastery derives retention from the streak length and ease factor.
func Mastery(repetitions int, ease float64) float64 {
	m := float64(repetitions)*0.15 + (ease-MinEase)/2

	return math.Max(0, math.Min(1, m))
}

// Decay returns the mastery visible at now after forgetting since the last
// review. It never mutates the item. Items never reviewed decay to 0.
func Decay(item models.SRSItem, now time.Time) float64 {
	if !item.Reviewed() {
		return 0
	}

	if item.Interval <= 0 {
		return item.Mastery
	}

	elapsed := now.Sub(item.LastReview)
	overdue := float64(elapsed) / float64(time.Duration(item.Interval)*Day)

	return item.Mastery * math.Exp(-0.5*math.Max(0, overdue-1))
}

// IsDue reports whether the item should be reviewed at now.
func IsDue(item models.SRSItem, now time.Time) bool {
	return !item.NextReview.After(now)
}

// DueItems returns the due items ordered most overdue first.
func DueItems[T any](items []T, state func(T) models.SRSItem, now time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if IsDue(state(it), now) {
			out = append(out, it)
		}
	}

	sortByNextReview(out, state)

	return out
}

// UpcomingReviews returns items that become due within the next hours,
// ordered by due time. Items already due are excluded.
func UpcomingReviews[T any](items []T, state func(T) models.SRSItem, now time.Time, hours int) []T {
	horizon := now.Add(time.Duration(hours) * time.Hour)

	out := make([]T, 0)
	for _, it := range items {
		next := state(it).NextReview
		if next.After(now) && !next.After(horizon) {
			out = append(out, it)
		}
	}

	sortByNextReview(out, state)

	return out
}

func sortByNextReview[T any](items []T, state func(T) models.SRSItem) {
	slices.SortStableFunc(items, func(a, b T) int {
		return state(a).NextReview.Compare(state(b).NextReview)
	})
}

// Level is a presentation bucket for mastery.
type Level string

// Mastery levels.
const (
	LevelNew       Level = "new"
	LevelLearning  Level = "learning"
	LevelReviewing Level = "reviewing"
	LevelMastered  Level = "mastered"
)

// MasteryLevel buckets a mastery value.
func MasteryLevel(mastery float64) Level {
	switch {
	case mastery <= 0:
		return LevelNew
	case mastery < 0.3:
		return LevelLearning
	case mastery < 0.7:
		return LevelReviewing
	default:
		return LevelMastered
	}
}

var qualityLabels = [...]string{
	"Complete blackout",
	"Incorrect, but recognized",
	"Incorrect, easy to recall",
	"Correct, with difficulty",
	"Correct, with hesitation",
	"Perfect recall",
}

// QualityLabel describes a quality rating for review prompts.
func QualityLabel(quality int) string {
	if quality < 0 || quality >= len(qualityLabels) {
		return ""
	}

	return qualityLabels[quality]
}

// ByMastery orders nodes by ascending stored mastery, keeping input order on ties.
func ByMastery(nodes []models.Node) {
	slices.SortStableFunc(nodes, func(a, b models.Node) int {
		return cmp.Compare(a.SRS.Mastery, b.SRS.Mastery)
	})
}
