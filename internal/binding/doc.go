// Package binding turns per-pass attachment declarations into GPU binding
// objects.
//
// A pass declares an ordered [List] of [Binding] values, each pairing an
// attachment key with an access mode, a bind kind and three layouts (before,
// during and after the pass). From the list the package derives the bind
// group layout entries, the descriptor tally used to size pools, the bind
// group entries, the render-pass attachment descriptions and the texture
// barriers.
//
// Binding indices are positional: a binding that takes part only as a
// render-pass attachment does not consume an index, so the n-th descriptor
// user gets index base+n regardless of where it sits in the list.
//
// A binding is either bound through a descriptor or through an attachment
// description, never both. Storage images always use a descriptor; sampled
// images use one unless they are write-only, in which case the pass renders
// into them as color targets.
package binding
