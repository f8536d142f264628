// Package bridge manages a client-side voice session with a voice agent.
//
// A session is provisioned over HTTP (see package webvoice), then carried on
// a duplex WebSocket channel: the client authenticates with its bearer
// token, streams microphone audio as binary frames and receives transcripts,
// agent responses, agent audio and state changes as JSON or binary frames.
//
// # Connecting
//
//	m := bridge.New(auth.NewStatic(token, orgID), webvoice.NewClient(baseURL),
//	    bridge.WithHandler(bridge.Handler{
//	        OnTranscript: func(msgs []transcript.Message) { render(msgs) },
//	        OnError:      func(err error) { showBanner(err) },
//	    }),
//	    bridge.WithCaptureFactory(mic),
//	    bridge.WithPlaybackFactory(speaker),
//	)
//	defer m.Close()
//
//	if err := m.Connect(ctx); err != nil {
//	    return err // a *bridge.Error with a user-facing message
//	}
//	m.StartRecording(ctx)
//	...
//	m.Disconnect(ctx)
//
// # Reconnection
//
// A channel that drops abnormally is re-established with exponential
// backoff (ReconnectPolicy). Normal closure, policy violation, a fatal
// server error frame and Disconnect all end the session for good.
//
// # Transcript
//
// Transcript events are folded into a bounded log by a
// transcript.Reconciler: interim text is revised in place, duplicates are
// dropped, and interim text that goes quiet is finalized as-is. Each
// finished session can be handed to an Archiver.
//
// # Audio
//
// Capture and Playback abstract the audio devices. Package pcmio provides
// stream-backed implementations. Agent audio is dropped when no playback is
// configured.
package bridge
