// Package steadyflow runs pipelines of *actors* which survive their own
// crashes without losing, duplicating or getting stuck on a message.
//
// ## How it works
//
// A `Graph` supervises named actors. Each actor is an `ActorFunc` running
// in its own goroutine; when it panics or returns an error, the `Graph`
// logs it and invokes the very same function again. Actors talk through
// bounded `flow.Channel`s, which live as long as the `Graph` and not as long
// as an invocation.
//
// What an actor must remember across restarts lives in a `State`, created
// once with the graph and captured by the actor function. Everything else
// is recomputed.
//
// ## The resumable-stage contract
//
// Restarts are only safe if actors follow a simple discipline:
//
//   - Peek before commit: observe inputs with `flow.Rx.Peek`, compute, send
//     with `flow.Tx.TrySend`, and only once the send succeeded advance the
//     inputs and update the `State`. A crash anywhere in between replays the
//     same input, and since the computation only depends on it, the replay
//     emits the same output.
//   - Wait, do not spin: `Context.WaitAll` suspends until every condition
//     (messages available, room to send, timer elapsed) holds at once.
//   - Quarantine showstoppers: a message which keeps crashing its consumer
//     is peeked again and again. Once `flow.Rx.IsShowstopper` reports it,
//     drop it so the pipeline moves on.
//   - Stop cooperatively: loop on `Context.IsRunning`, and close your
//     outputs when asked to stop so downstream actors can drain.
//
// A typical actor body reads:
//
//	state, unlock := cell.Lock(func() MyState { return MyState{} })
//	defer unlock()
//
//	for ctx.IsRunning(tx.MarkClosed) {
//		if !ctx.WaitAll(rx.WaitAvail(1), tx.WaitVacant(1)) {
//			continue
//		}
//		in, ok := rx.Peek()
//		if !ok {
//			continue
//		}
//		if tx.TrySend(process(in)) == nil {
//			rx.Advance(1)
//			state.Processed++
//		}
//	}
//
// ## Design Principles
//
// > `steadyflow` is **single-process** and **in-memory**.
//
// There is no durable broker behind a `flow.Channel`: state survives actor
// restarts, not process restarts. Ordering is only guaranteed within one
// channel.
package steadyflow
