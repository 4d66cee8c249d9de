package workflow

import "time"

type OrchestrationContext struct{}

func (ctx *OrchestrationContext) CurrentTime() time.Time {
	return time.Time{}
}

// Activities may do anything.
func Activity(ctx OrchestrationContext) (any, error) {
	for range map[string]string{} {
	}

	return time.Now(), nil
}
