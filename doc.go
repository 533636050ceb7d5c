// Package isotask is a single-task, fire-and-forget background execution
// primitive. Each run evaluates one self-contained function in a sandboxed,
// memory-isolated script worker; the only way data moves between caller and
// worker is serialized message passing, so the computation can never touch
// the caller's memory and the caller can never observe the worker's.
//
// A task is built from function-literal source text. The text is decomposed
// into parameter names and body, shipped across the isolation boundary, and
// reconstructed inside a fresh interpreter. The function receives a single
// argument whose state field carries the (deserialized) input:
//
//	task, fut, err := isotask.StartNew("function(ctx){ return ctx.state + 1; }", 5)
//	if err != nil {
//		// source was not a function literal
//	}
//	res, err := fut.Wait(context.Background())
//	// res.Data == 6, res.State == 5, task.Status() == StatusRanToCompletion
//
// Each run settles exactly once, with a Result or a *TaskError. Tasks are
// reusable after a run settles, restartable from both terminal states, and
// reject overlapping starts with ErrTaskBusy. Status and error transitions
// can be observed via AddObserver.
package isotask
