package domain

import "time"

// BuildReport aggregates the outcome of one build run.
type BuildReport struct {
	// Processed counts files whose chunks were flushed and recorded.
	Processed int `json:"processed"`

	// Skipped counts files unchanged since their last indexed version.
	Skipped int `json:"skipped"`

	// Failed counts files that errored; the run itself continued.
	Failed int `json:"failed"`

	// TotalChunks counts chunks flushed to the index during this run.
	TotalChunks int `json:"total_chunks"`

	// Failures holds one "file: error" message per failed file.
	Failures []string `json:"failures,omitempty"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}

// Answer is the generator's response plus the chunks it was grounded on.
type Answer struct {
	Text    string        `json:"text"`
	Context []ScoredChunk `json:"context,omitempty"`
}
