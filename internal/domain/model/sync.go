package model

// SyncScope selects who can see the objects an import run writes.
type SyncScope struct {
	Workspace bool
}

// OperationResult is the success/error record of a single sub-call.
type OperationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful OperationResult.
func Succeeded() OperationResult {
	return OperationResult{Success: true}
}

// Failed builds a failed OperationResult from err.
func Failed(err error) OperationResult {
	return OperationResult{Success: false, Error: err.Error()}
}
