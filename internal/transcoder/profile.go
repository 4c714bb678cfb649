package transcoder

import (
	"fmt"
	"strconv"
)

// Profile is the canonical format every input is normalized to before
// concatenation. Stream-copy concatenation is only valid because all
// normalized outputs share it.
type Profile struct {
	VideoCodec  string
	Preset      string
	CRF         int
	PixelFormat string
	MaxWidth    int
	MaxHeight   int
	FrameRate   int
	Timescale   int

	AudioCodec   string
	AudioBitrate string
	SampleRate   int
	Channels     int
}

// DefaultProfile is H.264/AAC in a fast-start MP4, at most 1280x720, 30 fps,
// 48 kHz stereo.
func DefaultProfile() Profile {
	return Profile{
		VideoCodec:   "libx264",
		Preset:       "veryfast",
		CRF:          23,
		PixelFormat:  "yuv420p",
		MaxWidth:     1280,
		MaxHeight:    720,
		FrameRate:    30,
		Timescale:    90000,
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		SampleRate:   48000,
		Channels:     2,
	}
}

// VideoFilter fits the frame inside MaxWidth x MaxHeight keeping the aspect
// ratio, pads odd dimensions up to the next even number (required by 4:2:0
// chroma subsampling) and forces the frame rate.
func (p Profile) VideoFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=ceil(iw/2)*2:ceil(ih/2)*2,setsar=1,fps=%d,format=%s",
		p.MaxWidth, p.MaxHeight, p.FrameRate, p.PixelFormat,
	)
}

// silenceSource is a lavfi source matching the profile's audio layout.
func (p Profile) silenceSource() string {
	layout := "stereo"
	if p.Channels == 1 {
		layout = "mono"
	}
	return fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", layout, p.SampleRate)
}

// TranscodeArgs builds the ffmpeg arguments that normalize input into output.
// When the input has no audio stream, silent audio is generated so every
// output carries the same stream layout.
func (p Profile) TranscodeArgs(input, output string, hasAudio bool) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y", "-i", input}

	if hasAudio {
		args = append(args, "-map", "0:v:0", "-map", "0:a:0")
	} else {
		args = append(args,
			"-f", "lavfi", "-i", p.silenceSource(),
			"-map", "0:v:0", "-map", "1:a:0", "-shortest",
		)
	}

	args = append(args,
		"-vf", p.VideoFilter(),
		"-r", strconv.Itoa(p.FrameRate),
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", p.PixelFormat,
		"-video_track_timescale", strconv.Itoa(p.Timescale),
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", strconv.Itoa(p.Channels),
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
	return args
}

// ConcatArgs builds the ffmpeg arguments that join the files listed in
// manifest into output without re-encoding.
func ConcatArgs(manifest, output string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	}
}

// AudioProbeArgs builds the ffprobe arguments that list audio stream indexes.
// Empty output means the file has no audio.
func AudioProbeArgs(input string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		input,
	}
}
