package model

// Result is the uniform response envelope of every public operation.
// Callers branch on Success only.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Ok wraps data in a successful envelope.
func Ok(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failed envelope carrying a caller-facing message.
func Fail(code, message string) Result {
	return Result{Success: false, Error: message, Code: code}
}
