package workflow

// Run status and conclusion values as reported by the GitHub Actions API.
// A run is immutable once its status is completed.
const (
	StatusCompleted   = "completed"
	ConclusionSuccess = "success"
)

// Run is one workflow run record from the CI feed
type Run struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HeadCommit struct {
		ID string `json:"id"`
	} `json:"head_commit"`
	ArtifactsURL string `json:"artifacts_url"`
	HTMLURL      string `json:"html_url"`

	// Workflow is the feed URL the run was fetched from. It is set
	// locally when the run enters the cache, not by the API.
	Workflow string `json:"workflow_url,omitempty"`
}

// Completed reports whether the run has reached its terminal status
func (r Run) Completed() bool {
	return r.Status == StatusCompleted
}

// Succeeded reports whether the run completed successfully
func (r Run) Succeeded() bool {
	return r.Completed() && r.Conclusion == ConclusionSuccess
}

// Artifact is one downloadable build output attached to a run
type Artifact struct {
	Name               string `json:"name"`
	Expired            bool   `json:"expired"`
	ArchiveDownloadURL string `json:"archive_download_url"`
}
