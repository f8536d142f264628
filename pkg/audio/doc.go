// Package audio groups the audio helpers used by the voice client:
//
//   - pcm: L16 mono formats, chunk maths and WAV headers
//   - resampler: sample rate conversion
//   - pcmio: bridge capture and playback ports over byte streams
package audio
