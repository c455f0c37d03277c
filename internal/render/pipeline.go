package render

import (
	"fmt"
	"sort"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/raquezha/nuecagram/internal/store"
)

func pipelineStatusEmoji(status string) string {
	switch status {
	case "pending":
		return "⏳"
	case "running":
		return "🔄"
	case "success":
		return "✅"
	case "failed":
		return "❌"
	case "canceled":
		return "⛔"
	case "skipped":
		return "⏭️"
	case "manual":
		return "👆"
	case "scheduled":
		return "🕐"
	default:
		return "❓"
	}
}

func pipelineStatusText(status string) string {
	if status == "success" {
		return "passed"
	}
	return status
}

func jobStatusEmoji(status store.JobStatus) string {
	switch status {
	case store.JobStatusCreated:
		return "🆕"
	case store.JobStatusPending:
		return "⏳"
	case store.JobStatusRunning:
		return "🔄"
	case store.JobStatusSuccess:
		return "✅"
	case store.JobStatusFailed:
		return "❌"
	case store.JobStatusCanceled:
		return "⛔"
	case store.JobStatusSkipped:
		return "⏭️"
	case store.JobStatusManual:
		return "👆"
	default:
		return "❓"
	}
}

// jobStatusSuffix is the per-line trailer in the job tree: a duration for
// passed jobs, a log link for failed ones, and a plain word otherwise.
func jobStatusSuffix(job store.JobRecord, jobURL string) string {
	switch job.Status {
	case store.JobStatusSuccess:
		if job.Duration != nil {
			return fmt.Sprintf(" (%s)", formatDuration(int64(*job.Duration)))
		}
		return ""
	case store.JobStatusFailed:
		return " " + link(jobURL, "View Logs")
	case store.JobStatusRunning:
		return " running..."
	case store.JobStatusPending:
		return " pending"
	case store.JobStatusCanceled:
		return " canceled"
	case store.JobStatusSkipped:
		return " skipped"
	case store.JobStatusManual:
		return " manual"
	default:
		return ""
	}
}

func appendJobTree(b *strings.Builder, jobs []store.JobRecord, projectWebURL string) {
	for i, job := range jobs {
		prefix := "├─"
		if i == len(jobs)-1 {
			prefix = "└─"
		}
		jobURL := fmt.Sprintf("%s/-/jobs/%d", projectWebURL, job.ID)
		fmt.Fprintf(b, "%s %s %s%s\n", prefix, jobStatusEmoji(job.Status), escape(job.Name), jobStatusSuffix(job, jobURL))
	}
}

// stageOrder orders jobs by the pipeline's declared stage sequence; jobs in
// unknown stages sort last.
func stageOrder(stage string, stages []string) int {
	for i, s := range stages {
		if s == stage {
			return i
		}
	}
	return len(stages) + 1
}

func sortJobs(jobs []store.JobRecord, stages []string) {
	sort.Slice(jobs, func(i, j int) bool {
		si, sj := stageOrder(jobs[i].Stage, stages), stageOrder(jobs[j].Stage, stages)
		if si != sj {
			return si < sj
		}
		return jobs[i].ID < jobs[j].ID
	})
}

// Pipeline renders the live status message for a pipeline-level event:
// a header line, the job tree grouped by stage, and a trailer with the
// total duration once the run is over.
func Pipeline(event *gitlab.PipelineEvent) string {
	attrs := event.ObjectAttributes
	status := attrs.Status
	commitSHA := "unknown"
	if event.Commit.ID != "" {
		commitSHA = shortSHA(event.Commit.ID)
	}
	userName := "Unknown"
	if event.User != nil && event.User.Name != "" {
		userName = event.User.Name
	}
	pipelineURL := fmt.Sprintf("%s/-/pipelines/%d", event.Project.WebURL, attrs.ID)

	jobs := make([]store.JobRecord, 0, len(event.Builds))
	for _, b := range event.Builds {
		duration := b.Duration
		jobs = append(jobs, store.JobRecord{
			ID:           int64(b.ID),
			Name:         b.Name,
			Stage:        b.Stage,
			Status:       store.JobStatus(b.Status),
			Duration:     &duration,
			AllowFailure: b.AllowFailure,
		})
	}
	sortJobs(jobs, attrs.Stages)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Pipeline %s %s\n", pipelineStatusEmoji(status), link(pipelineURL, fmt.Sprintf("#%d", attrs.ID)), pipelineStatusText(status))
	fmt.Fprintf(&b, "Branch: %s • %s\n\n", bold(escape(attrs.Ref)), commitSHA)

	if len(jobs) > 0 {
		appendJobTree(&b, jobs, event.Project.WebURL)
		b.WriteString("\n")
	}

	if attrs.Duration > 0 && (status == "success" || status == "failed" || status == "canceled") {
		fmt.Fprintf(&b, "Total: %s • ", formatDuration(int64(attrs.Duration)))
	}
	fmt.Fprintf(&b, "Triggered by %s", bold(escape(userName)))
	return b.String()
}

// JobAggregate renders the live status message in job-only mode, where the
// view is rebuilt from accumulated job records instead of a pipeline event.
// Stage ordering is unknown without a pipeline event, so jobs group by
// stage name.
func JobAggregate(pipelineID int64, status store.JobStatus, meta store.PipelineMetadata, jobMap map[int64]store.JobRecord) string {
	jobs := make([]store.JobRecord, 0, len(jobMap))
	for _, j := range jobMap {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Stage != jobs[j].Stage {
			return jobs[i].Stage < jobs[j].Stage
		}
		return jobs[i].ID < jobs[j].ID
	})

	header := fmt.Sprintf("#%d", pipelineID)
	if meta.ProjectWebURL != "" {
		header = link(fmt.Sprintf("%s/-/pipelines/%d", meta.ProjectWebURL, pipelineID), header)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Pipeline %s %s\n", pipelineStatusEmoji(string(status)), header, pipelineStatusText(string(status)))
	if meta.Ref != "" {
		fmt.Fprintf(&b, "Branch: %s • %s\n", bold(escape(meta.Ref)), shortSHA(meta.CommitSHA))
	}
	b.WriteString("\n")

	appendJobTree(&b, jobs, meta.ProjectWebURL)

	if meta.UserName != "" {
		fmt.Fprintf(&b, "\nTriggered by %s", bold(escape(meta.UserName)))
	}
	return b.String()
}
