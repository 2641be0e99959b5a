// Package planner turns probed media facts and the batch options into an
// EncodePlan: the video bitrate that fits the size budget, and a reduced
// resolution when the budget is too small to encode at the source size.
package planner
