package health

import "context"

// StorePinger checks cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// JudgeChecker checks judge provider availability.
type JudgeChecker interface {
	HealthCheck(ctx context.Context) error
}
