// Package attachment owns the GPU images shared by every render pass.
//
// Attachments are addressed by a symbolic [Key]. The [Registry] creates one
// texture and one default view per key from a fixed format/usage table and
// hands out borrowed [FrameBufferAttachment] references. Keys are stable for
// the lifetime of the process; the textures behind them are replaced on
// [Registry.Resize], so callers must look them up again after a resize
// rather than caching the returned pointer.
package attachment
