package domain

import "errors"

var (
	// ErrValidation signals caller input rejected before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUpstream signals a review source transport failure (network, non-200).
	ErrUpstream = errors.New("upstream source error")
	// ErrMalformedResponse signals an undecodable upstream payload.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSynthesis signals a text generation failure.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrNoReviews signals that ingestion produced nothing to store.
	ErrNoReviews = errors.New("no reviews available")
)
