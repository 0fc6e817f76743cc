// Package pkg holds the libraries behind vpo, a scroll-scrubbed frame
// sequence player.
//
// # Overview
//
// A scene is a numbered run of still images. Input from a page scroll, a
// mouse wheel or a touch drag moves a playback position across the
// sequence and the matching frame is painted into whatever surface hosts
// the player: a desktop window, a WebSocket client or an offscreen image.
//
// # Architecture
//
//	frames.Spec
//	     ↓
//	[loader]    priority frames first, then bounded batches
//	     ↓
//	frames.Sequence
//	     ↓
//	[playback]  input → position (wheel, touch, scroll progress, easing)
//	     ↓
//	[render]    position → cover-fit frame or crossfade
//	     ↓
//	[player]    lifecycle glue between the above and a Viewport
//
// Supporting packages:
//
//   - [config]: TOML scene catalog with hot reload
//   - [cache]: frame bytes and rendered stills (file, Redis)
//   - [metrics]: load timings (JSON lines, MongoDB)
//   - [pipeline]: load → render → encode for stills
//   - [server]: HTTP and WebSocket API
//   - [errors]: coded errors shared by every surface
//   - [observability]: hook points for logging and metrics
package pkg
