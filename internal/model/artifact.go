package model

// Artifact is the normalized view of a job's raw result.
type Artifact struct {
	JobID    string    `json:"job_id"`
	Tool     string    `json:"tool"`
	Checksum string    `json:"checksum"`
	Findings []Finding `json:"findings"`
	Summary  Summary   `json:"summary"`
}
