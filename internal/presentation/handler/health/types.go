package health

// healthResponse reports liveness plus uptime for operators
type healthResponse struct {
	Ok        bool   `json:"ok"`        // false once shutdown has begun
	Timestamp string `json:"timestamp"` // Current server timestamp in RFC3339 format
	Uptime    string `json:"uptime"`    // Server uptime since start
}
