package types

// Job is a scheduled run of a registered task.
type Job struct {
	Name            string `json:"name"`
	Schedule        string `json:"schedule"`
	TaskName        string `json:"task"`
	Enabled         bool   `json:"enabled"`
	Description     string `json:"description"`
	NotifyOnFailure bool   `json:"notify_on_failure"`
}

type JobConfig struct {
	MaxConcurrent int   `json:"max_concurrent"`
	Predefined    []Job `json:"predefined"`
}
