package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Number of sessions currently being stepped by the scheduler.
	// example: 2
	ActiveSessions int `json:"active_sessions" example:"2"`
	// Number of requests waiting in the intake queue.
	// example: 0
	QueuedRequests int `json:"queued_requests" example:"0"`
	// Configured cap on simultaneously active sessions.
	// example: 4
	MaxSessions int `json:"max_sessions" example:"4"`
	// Path of the loaded model file.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	ModelPath string `json:"model_path" example:"/home/user/models/TinyLlama.Q4_K_M.gguf"`
	// Whether intake has been halted (submission channel closed).
	IntakeClosed bool `json:"intake_closed"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
