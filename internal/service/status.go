package service

import "github.com/raquezha/nuecagram/internal/store"

// DeriveStatus aggregates an overall pipeline status from accumulated job
// records in job-only mode. Precedence, first match wins:
// a hard failure beats everything, then activity, then waiting, then
// cancellation; a set of only success/skipped/soft-failed jobs passed.
func DeriveStatus(jobs map[int64]store.JobRecord) store.JobStatus {
	var anyRunning, anyPending, anyCanceled bool
	allDone := len(jobs) > 0

	for _, job := range jobs {
		switch job.Status {
		case store.JobStatusFailed:
			if !job.AllowFailure {
				return store.JobStatusFailed
			}
		case store.JobStatusRunning:
			anyRunning = true
		case store.JobStatusPending, store.JobStatusCreated:
			anyPending = true
		case store.JobStatusCanceled:
			anyCanceled = true
		case store.JobStatusSuccess, store.JobStatusSkipped:
		default:
			allDone = false
		}
	}

	switch {
	case anyRunning:
		return store.JobStatusRunning
	case anyPending:
		return store.JobStatusPending
	case anyCanceled:
		return store.JobStatusCanceled
	case allDone:
		return store.JobStatusSuccess
	default:
		// Nothing conclusive yet (e.g. only manual jobs); report running
		// rather than declaring a verdict.
		return store.JobStatusRunning
	}
}

// AllJobsTerminal reports whether every accumulated job has finished. The
// aggregate view only completes (reply + clear) once nothing is still
// moving, even if a hard failure already decided the verdict.
func AllJobsTerminal(jobs map[int64]store.JobRecord) bool {
	if len(jobs) == 0 {
		return false
	}
	for _, job := range jobs {
		if !job.Status.Terminal() {
			return false
		}
	}
	return true
}
