// Package pcmio implements bridge audio ports over plain byte streams.
//
// StreamCapture plays the microphone: it reads PCM from a source and sends
// one frame per tick, so a recorded file reaches the agent at the speed it
// was spoken. StreamPlayback plays the speaker: it writes agent audio to
// any io.Writer, such as a file that is later saved as WAV.
package pcmio
