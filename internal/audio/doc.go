// Package audio holds the audio-file collaborators of the analysis engine:
// the supported-format allow-list, an ffmpeg based PCM decoder and ID3
// title lookup.
//
// # Decoding
//
// Any format ffmpeg understands is decoded to mono float32 PCM:
//
//	dec := audio.NewFFmpegDecoder(audio.AnalysisSampleRate)
//	samples, rate, err := dec.Decode(ctx, "song.mp3")
//
// # Formats
//
// Only mp3, wav and ogg files are accepted by CheckFormat; everything else
// yields ErrUnsupportedFormat.
package audio
