// Package pass implements the render passes of the filter pipeline and the
// manager that sequences them.
//
// Every pass records its commands once with a recording.Recorder during
// Prepare and replays them into a fresh command buffer on Draw. The path
// tracer is the exception: it re-records each frame to advance its frame
// counter.
//
// Passes are grouped into queue templates. Exactly one template is active;
// its passes are submitted in order, each waiting on the semaphore the
// previous one signaled, and the last entry of every template is the
// display composite the GUI overlay draws on top of.
package pass
