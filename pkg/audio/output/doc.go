// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides backends, mastering voices and source voices
// Package output binds to system audio devices.
//
// A Backend creates an Engine. The engine opens a MasteringVoice on one
// device and SourceVoices that queue decoded buffers for it. Every backend
// renders 48 kHz 16-bit stereo; source voices convert their input rate and
// channel count on the fly.
//
// Example:
//
//	backend, _ := output.New("malgo")
//	engine, _ := backend.NewEngine()
//	master, _ := engine.NewMasteringVoice("")
//	voice, _ := engine.NewSourceVoice(master, audio.Format{SampleRate: 44100, Channels: 2})
//	_ = voice.Start()
//	_ = voice.Submit(buf)
package output
