package fsrs

import (
	"math"
	"time"
)

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// RatingForDifficulty maps a flashcard difficulty (0 easy .. 3 hard) onto an
// FSRS rating. Difficulties at or below 0 map to Easy, at or above 3 to Again.
func RatingForDifficulty(difficulty int) Rating {
	switch {
	case difficulty <= 0:
		return Easy
	case difficulty == 1:
		return Good
	case difficulty == 2:
		return Hard
	default:
		return Again
	}
}

// Params holds the parameters for the FSRS algorithm.
// These are placeholder values and should be optimized later.
type Params struct {
	A                float64 // scales the overall memory increase
	B                float64 // difficulty exponent
	C                float64 // stability exponent
	D                float64 // retention effect scaler
	DesiredRetention float64 // desired retention rate (e.g., 0.9 for 90%)
}

// DefaultParams provides a set of sensible default parameters to start with.
func DefaultParams() *Params {
	return &Params{
		A:                0.2,
		B:                0.5,
		C:                0.1,
		D:                4.0,
		DesiredRetention: 0.9,
	}
}

// CardState holds the memory state of a card.
type CardState struct {
	Stability  float64
	Difficulty float64
	LastReview time.Time
}

// NextState calculates the next stability and difficulty for a review that
// happened at reviewedAt.
func (p *Params) NextState(currentState CardState, rating Rating, reviewedAt time.Time) CardState {
	if rating == Again {
		// Forgotten: stability drops back to a day and the card gets harder.
		return CardState{
			Stability:  1,
			Difficulty: math.Min(10, currentState.Difficulty+0.5),
			LastReview: reviewedAt,
		}
	}

	newStability := p.calculateNewStability(currentState.Stability, currentState.Difficulty)
	newDifficulty := currentState.Difficulty
	switch rating {
	case Hard:
		newDifficulty = math.Min(10, newDifficulty+0.1)
	case Easy:
		newDifficulty = math.Max(0, newDifficulty-0.1)
	}

	return CardState{
		Stability:  newStability,
		Difficulty: newDifficulty,
		LastReview: reviewedAt,
	}
}

// calculateNewStability applies the core FSRS formula for a successful review.
func (p *Params) calculateNewStability(stability, difficulty float64) float64 {
	// Formula: S' = S * (1 + a * D^(-b) * S^c * (e^(d * (1-R)) - 1))
	if stability < 1 {
		stability = 1 // Ensure stability is at least 1 to avoid issues with pow
	}
	if difficulty < 1 {
		difficulty = 1 // Ensure difficulty is at least 1
	}

	factor := p.A * math.Pow(difficulty, -p.B) * math.Pow(stability, p.C)
	exponent := p.D * (1 - p.DesiredRetention)
	multiplier := math.Exp(exponent) - 1

	return stability * (1 + factor*multiplier)
}

// NextDueDate schedules the next review newStability days (rounded) after from.
func NextDueDate(from time.Time, newStability float64) time.Time {
	daysToAdd := time.Duration(math.Round(newStability))
	return from.Add(daysToAdd * 24 * time.Hour)
}
