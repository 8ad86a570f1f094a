package httpdto

type HealthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	Connections int    `json:"connections"`
}
