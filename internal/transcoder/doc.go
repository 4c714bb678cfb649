// Package transcoder drives ffmpeg for the two engine-backed stages of a
// merge.
//
// Normalize re-encodes every input, one at a time and in order, to a fixed
// Profile (H.264/AAC MP4, bounded resolution with even padding, fixed frame
// rate and audio layout), writing normalized_NNN.mp4 files named by position.
// Concatenate writes a concat-demuxer manifest and joins the normalized files
// with stream copy into merged.mp4.
//
// Engine access goes through the Runner interface. FFmpeg is the production
// Runner: it starts ffmpeg/ffprobe, captures stderr for operator logs, tracks
// live processes and kills them on Cleanup. The enginetest subpackage
// provides an in-process fake for tests.
//
// FFmpeg and ffprobe must be installed and either on PATH or configured via
// FFMPEG_PATH / FFPROBE_PATH.
package transcoder
