package constants

// OutputStatus is the status field the agent is contracted to emit.
type OutputStatus string

// Stable values (these exact strings cross the model wire).
const (
	StatusSuccess     OutputStatus = "success"
	StatusNeedsReview OutputStatus = "needs_review"
	StatusFailed      OutputStatus = "failed"
)

// IndexingStatus is the canonical status for the document indexing pipeline.
type IndexingStatus string

const (
	IndexingQueued   IndexingStatus = "QUEUED"
	IndexingRunning  IndexingStatus = "RUNNING"
	IndexingIndexed  IndexingStatus = "INDEXED"
	IndexingFailed   IndexingStatus = "FAILED"
	IndexingReviewed IndexingStatus = "REVIEWED"
)
