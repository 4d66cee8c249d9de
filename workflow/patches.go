package workflow

// IsPatched reports whether the code path guarded by the named patch should run. New executions
// always take the patched path; replays take it only if the patch was recorded when the history
// was produced. The decision for a patch is stable for the duration of the orchestration task.
func (ctx *OrchestrationContext) IsPatched(name string) bool {
	patched := ctx.isPatched(name)

	if patched && !ctx.encounteredPatch(name) {
		ctx.appliedPatches = append(ctx.appliedPatches, name)
	}

	ctx.encounteredPatches[name] = patched

	return patched
}

func (ctx *OrchestrationContext) isPatched(name string) bool {
	if patched, ok := ctx.encounteredPatches[name]; ok {
		return patched
	}

	if ctx.historyPatches[name] {
		return true
	}

	return !ctx.isReplaying
}

func (ctx *OrchestrationContext) encounteredPatch(name string) bool {
	_, ok := ctx.encounteredPatches[name]
	return ok
}
