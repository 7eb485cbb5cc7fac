package ingest

type FileReport struct {
	Path           string `json:"path"`
	Name           string `json:"name"`
	Chunks         int    `json:"chunks"`
	ChunksStored   int    `json:"chunks_stored"`
	ChunksDropped  int    `json:"chunks_dropped"`
	BatchesDropped int    `json:"batches_dropped"`
	Failed         bool   `json:"failed"`
	Error          string `json:"error,omitempty"`
}

// Report aggregates a run. ChunksProcessed counts stored chunks only, each once.
type Report struct {
	FilesProcessed  int          `json:"files_processed"`
	FilesFailed     int          `json:"files_failed"`
	ChunksProcessed int          `json:"total_chunks_processed"`
	ChunksDropped   int          `json:"chunks_dropped"`
	BatchesDropped  int          `json:"batches_dropped"`
	Files           []FileReport `json:"files,omitempty"`
}

func (r *Report) add(fr FileReport) {
	r.FilesProcessed++
	if fr.Failed {
		r.FilesFailed++
	}
	r.ChunksProcessed += fr.ChunksStored
	r.ChunksDropped += fr.ChunksDropped
	r.BatchesDropped += fr.BatchesDropped
	r.Files = append(r.Files, fr)
}

// Single wraps one file in a report.
func Single(fr FileReport) Report {
	var r Report
	r.add(fr)
	return r
}

// Partial reports whether any chunk of the run was dropped or any file failed.
func (r Report) Partial() bool {
	return r.ChunksDropped > 0 || r.FilesFailed > 0
}
