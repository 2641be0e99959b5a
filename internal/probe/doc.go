// Package probe asks ffprobe for a file's duration, bitrate and resolution
// and parses its key=value output into a model.MediaInfo. It is the only
// place in the module that scrapes ffprobe text.
package probe
