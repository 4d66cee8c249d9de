package p

import (
	"fmt"
	"math/rand"
	"time"

	"workflow"
)

func orchestrator(ctx *workflow.OrchestrationContext) (any, error) {
	return nil, nil
}

func orchestratorWithoutResult(ctx *workflow.OrchestrationContext) error { // want "orchestrator \"orchestratorWithoutResult\" must return two values, a result and `error`"
	return nil
}

func orchestratorWithoutReturn(ctx *workflow.OrchestrationContext) { // want "orchestrator \"orchestratorWithoutReturn\" must return two values, a result and `error`"
}

func orchestratorWrongOrder(ctx *workflow.OrchestrationContext) (error, any) { // want "orchestrator \"orchestratorWrongOrder\" doesn't return `error` as last return value"
	return nil, nil
}

func iteratingOverMap(ctx *workflow.OrchestrationContext) (any, error) {
	x := make(map[string]string)

	fmt.Println("log")

	for _, v := range x { // want "iterating over a map is not deterministic and not allowed in orchestrators"
		if v == "a" {
			return nil, nil
		}
	}

	return nil, nil
}

func usingGoRoutine(ctx *workflow.OrchestrationContext) (any, error) {
	go func() { // want "`go` statements are not allowed in orchestrators; schedule work with ctx.CallActivity"
		fmt.Println("hello")
	}()

	return nil, nil
}

func usingSelect(ctx *workflow.OrchestrationContext) (any, error) {
	c := make(chan int)

	select { // want "`select` is not deterministic and not allowed in orchestrators; await tasks instead"
	case <-c:
	default:
	}

	return nil, nil
}

func usingWallClock(ctx *workflow.OrchestrationContext) (any, error) {
	start := time.Now()     // want "use ctx.CurrentTime instead of time.Now in orchestrators"
	time.Sleep(time.Second) // want "use ctx.CreateTimer instead of time.Sleep in orchestrators"
	_ = time.Since(start)   // want "use ctx.CurrentTime instead of time.Since in orchestrators"

	return ctx.CurrentTime(), nil
}

func usingRandom(ctx *workflow.OrchestrationContext) (any, error) {
	if rand.Intn(2) == 0 { // want "random numbers are not deterministic; generate them in an activity"
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		func() {
			_ = time.After(time.Duration(i)) // want "use ctx.CreateTimer instead of time.After in orchestrators"
		}()
	}

	return nil, nil
}

func notAnOrchestrator(ctx workflow.OrchestrationContext) {
	go func() {}()
	_ = time.Now()
}
