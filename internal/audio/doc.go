// Package audio plays short feedback sounds, such as the cue when a modal
// window refuses to give up focus. It uses the beep library to decode WAV,
// OGG and MP3 files.
package audio
