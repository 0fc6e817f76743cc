// Package render paints a playback position onto a canvas.
//
// # Overview
//
// A render resolves the position to the nearest loaded frames of a
// [frames.Sequence], fits them to the canvas with cover semantics and, in
// sparse sequences, cross-fades between the two neighbours:
//
//	r := render.New(render.Crossfade)
//	blend := r.RenderFrame(4.5, seq, canvas)
//
// # Cover Fit
//
// [CoverFit] scales an image so it covers the whole canvas while keeping its
// aspect ratio. The excess is cropped symmetrically on one axis.
//
// # Canvases
//
// [Canvas] abstracts the drawing target. [RasterCanvas] draws into an
// in-memory RGBA image for the CLI and the HTTP server; the desktop player
// provides its own GPU-backed implementation.
package render
