// ABOUTME: Audio output session package
// ABOUTME: Binds decoded audio to one output device at a time
// Package session manages the live binding between a player and an audio
// output device.
//
// A Manager owns at most one device session (engine, mastering voice and
// source voice). Volume, mute and device selection survive session rebuilds.
// Decoded buffers are submitted without taking the control lock; a
// submission that races a rebuild is dropped and counted, never fatal.
//
// Example:
//
//	backend, _ := output.New("malgo")
//	m := session.New(session.Config{Backend: backend, VolumeMax: 150})
//	defer m.Close()
//
//	m.SetVolume(80)
//	m.Submit(buf)
package session
