package importer

// The batch report returned by every /import endpoint. Records are processed
// one at a time and each one succeeds or fails on its own; the report keeps
// the outcomes in input order.

type Summary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type Result struct {
	Item    string `json:"item"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type Report struct {
	Message string   `json:"message"`
	Summary Summary  `json:"summary"`
	Results []Result `json:"results"`
}

func NewReport() *Report {
	return &Report{
		Message: "Import completed",
		Results: []Result{},
	}
}

func (r *Report) Succeed(item, message string) {
	r.Summary.Total++
	r.Summary.Success++
	r.Results = append(r.Results, Result{
		Item:    item,
		Status:  "success",
		Message: message,
	})
}

func (r *Report) Fail(item, reason string) {
	r.Summary.Total++
	r.Summary.Failed++
	r.Results = append(r.Results, Result{
		Item:    item,
		Status:  "error",
		Message: "Could not be added",
		Reason:  reason,
	})
}
