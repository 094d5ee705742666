package staging

import "time"

// Outcome describes what a single staging step did.
type Outcome string

const (
	// OutcomeRemoved means an existing directory tree was deleted.
	OutcomeRemoved Outcome = "removed"
	// OutcomeAbsent means there was nothing to delete.
	OutcomeAbsent Outcome = "absent"
	// OutcomeExtracted means the archive was decompressed.
	OutcomeExtracted Outcome = "extracted"
	// OutcomeSkipped means the step did not run.
	OutcomeSkipped Outcome = "skipped"
)

// Result captures the outcome of staging one component.
type Result struct {
	// Component is the staged component.
	Component Component `yaml:"component"`
	// ExtractDir reports whether a previous extraction directory was deleted.
	ExtractDir Outcome `yaml:"extract_dir"`
	// PublishDir reports whether previously published headers were deleted.
	PublishDir Outcome `yaml:"publish_dir"`
	// Extraction reports whether the archive was decompressed.
	Extraction Outcome `yaml:"extraction"`
	// FilesCopied is the number of regular files written under the include root.
	FilesCopied int `yaml:"files_copied"`
	// LogFile is where the decompression output went.
	LogFile string `yaml:"log_file,omitempty"`
	// StartedAt is when staging of the component began.
	StartedAt time.Time `yaml:"started_at"`
	// Duration is how long staging took.
	Duration time.Duration `yaml:"duration"`
}

// NewResult returns a Result with every step marked as not having run.
func NewResult(c Component) *Result {
	return &Result{
		Component:  c,
		ExtractDir: OutcomeSkipped,
		PublishDir: OutcomeSkipped,
		Extraction: OutcomeSkipped,
		StartedAt:  time.Now().UTC(),
	}
}

// Finish records the elapsed time since StartedAt.
func (r *Result) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Report is the set of results for one run of the stager.
type Report struct {
	// IncludeRoot is the shared include root used for the run.
	IncludeRoot string `yaml:"include_root"`
	// Results holds one entry per staged component, in staging order.
	Results []*Result `yaml:"results"`
}
