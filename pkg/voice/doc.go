// Package voice provides a unified interface for speech recognition pipelines.
//
// The voice package abstracts recognizers behind a common Pipeline
// interface, so the rest of the robot does not care whether transcripts
// come from a local vosk-server or a test script.
//
// # Bundled Pipelines
//
// The bundled subpackage ships two implementations:
//
//   - vosk: streams microphone audio to a vosk-server over a websocket
//     and parses its partial/final JSON replies. Runs fully offline.
//   - mock: plays scripted transcripts for tests.
//
// # Usage
//
// Import the bundled package for its side effects, then create a
// pipeline by name:
//
//	import (
//	    "github.com/teslashibe/go-raspbot/pkg/voice"
//	    _ "github.com/teslashibe/go-raspbot/pkg/voice/bundled"
//	)
//
//	pipeline, err := voice.New("vosk", voice.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pipeline.OnTranscript(func(text string, final bool) {
//	    if final {
//	        fmt.Printf("heard: %s\n", text)
//	    }
//	})
//
//	if err := pipeline.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pipeline.Stop()
//
// While the robot is speaking, gate the microphone so the recognizer
// does not transcribe the robot's own voice:
//
//	player.OnPlaybackStart = pipeline.Pause
//	player.OnPlaybackEnd = pipeline.Resume
//
// # Metrics
//
// Pipelines count partial and final transcripts and measure decode
// latency per utterance:
//
//	m := pipeline.Metrics()
//	fmt.Printf("%d finals, last %q, decode %s\n",
//	    m.Finals, m.LastFinal, m.DecodeLatency)
package voice
