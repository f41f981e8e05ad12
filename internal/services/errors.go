package services

import (
	"errors"

	"cclens/internal/analytics"
)

// Dataset lifecycle errors. The wording matters: the HTTP error handler
// classifies wrapped errors by these substrings when no APIError is present.
var (
	ErrDatasetNotLoaded = errors.New("complaints dataset is not loaded")
	ErrReloadInProgress = errors.New("dataset reload already running")
)

// Request validation sentinels, re-exported from the analytics package so
// callers branch on one import.
var (
	ErrInvalidDimension   = analytics.ErrInvalidDimension
	ErrInvalidMeasure     = analytics.ErrInvalidMeasure
	ErrInvalidGranularity = analytics.ErrInvalidGranularity
	ErrUnsupportedMeasure = analytics.ErrUnsupportedMeasure
	ErrInsufficientYears  = analytics.ErrInsufficientYears
)
