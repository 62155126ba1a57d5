// Package recording captures GPU commands once and replays them every frame.
//
// Backend command buffers are single-use: once submitted they cannot be
// submitted again. Passes therefore record their work into a [Recording],
// an immutable list of typed commands, and replay it into a fresh command
// buffer each frame with [Recording.Playback]. The recording is rebuilt
// only when the pass itself is rebuilt (resize, template switch).
//
// Commands are plain structs so a recording can be inspected in tests and
// logged when debugging:
//
//	rec := recording.NewRecorder("gauss")
//	rec.Transition(barriers...)
//	rec.BeginRenderPass(desc)
//	rec.SetPipeline(pipeline)
//	rec.SetBindGroup(0, group)
//	rec.Draw(3, 1, 0, 0)
//	rec.EndRenderPass()
//	r := rec.Finish()
//
//	cmd, err := r.Playback(encoder, queue)
package recording
