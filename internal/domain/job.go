package domain

import "strings"

// JobStatus enumerates the aggregate lifecycle states reported to clients.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// StatusFromUpstream converts a raw provider status into the internal enum.
// Terminal states map directly; anything else is still processing. This is
// the only place raw provider status strings are interpreted.
func StatusFromUpstream(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succeeded":
		return JobStatusSucceeded
	case "failed", "canceled":
		return JobStatusFailed
	default:
		return JobStatusProcessing
	}
}

// JobRefSeparator joins upstream prediction ids into the single opaque id
// handed to clients. Prediction ids are URL-safe alphanumeric tokens, so the
// pipe never collides with a legitimate id character.
const JobRefSeparator = "|"

// JobRef is the ordered list of upstream prediction ids backing one logical
// try-on job. For multi-view jobs the order is semantic: front, side, full.
type JobRef []string

// Composite reports whether the job fans out over multiple predictions.
func (r JobRef) Composite() bool { return len(r) > 1 }

// String renders the wire form used in poll URLs.
func (r JobRef) String() string { return strings.Join(r, JobRefSeparator) }

// ParseJobRef splits a wire-format job id back into upstream ids.
func ParseJobRef(raw string) (JobRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrBadRequest
	}
	parts := strings.Split(raw, JobRefSeparator)
	ref := make(JobRef, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, ErrBadRequest
		}
		ref = append(ref, part)
	}
	return ref, nil
}
