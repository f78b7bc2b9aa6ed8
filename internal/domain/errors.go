package domain

import "errors"

var (
	// ErrJudgeProviderError signals a judge provider (LLM API) failure.
	ErrJudgeProviderError = errors.New("judge provider error")
	// ErrInvalidSchemaHint signals an unknown schema hint.
	ErrInvalidSchemaHint = errors.New("invalid schema hint")
	// ErrRateLimited signals a rate limit hit at the judge provider.
	ErrRateLimited = errors.New("rate limited")
)
