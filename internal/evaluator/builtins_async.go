package evaluator

import (
	"time"
)

func asyncModule() *Module {
	fns := map[string]BuiltinFunction{
		"sleep":   asyncSleep,
		"all":     asyncAll,
		"race":    asyncRace,
		"resolve": asyncResolve,
		"reject":  asyncReject,
	}
	return moduleOf("async", fns, nil, []string{"sleep", "all", "race", "resolve", "reject"})
}

// sleep(ms) returns a promise that blocks for the duration when the
// scheduler runs its task. The loop is cooperative: nothing else runs
// during the sleep itself.
func asyncSleep(ctx CallContext, args []Object) Object {
	if err := wantArgs("async.sleep", 1, args); err != nil {
		return err
	}
	ms, err := argNumber("async.sleep", args, 0)
	if err != nil {
		return err
	}
	sched := ctx.Scheduler()
	promise := sched.NewPromise()
	sched.Schedule(promise, func() {
		if ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		sched.Resolve(promise, NULL)
	})
	return promise
}

// all(promises) settles every input and resolves with the results in
// input order, or rejects with the first rejection.
func asyncAll(ctx CallContext, args []Object) Object {
	if err := wantArgs("async.all", 1, args); err != nil {
		return err
	}
	arr, err := argArray("async.all", args, 0)
	if err != nil {
		return err
	}
	return ctx.Scheduler().All(arr.Elements)
}

// race settles inputs in order and returns the first settled result.
// With a deterministic single-threaded loop that is the first input,
// but the rejection behavior still matters.
func asyncRace(ctx CallContext, args []Object) Object {
	if err := wantArgs("async.race", 1, args); err != nil {
		return err
	}
	arr, err := argArray("async.race", args, 0)
	if err != nil {
		return err
	}
	if len(arr.Elements) == 0 {
		return newError("async.race: expected at least one promise")
	}
	return ctx.Scheduler().Await(arr.Elements[0])
}

func asyncResolve(ctx CallContext, args []Object) Object {
	if err := wantArgs("async.resolve", 1, args); err != nil {
		return err
	}
	sched := ctx.Scheduler()
	promise := sched.NewPromise()
	sched.Resolve(promise, args[0])
	return promise
}

func asyncReject(ctx CallContext, args []Object) Object {
	if err := wantArgs("async.reject", 1, args); err != nil {
		return err
	}
	sched := ctx.Scheduler()
	promise := sched.NewPromise()
	sched.Reject(promise, args[0])
	return promise
}
