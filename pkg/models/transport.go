package models

// AnalyzeRequest is the HTTP request body for a dossier run.
type AnalyzeRequest struct {
	PropertyID       string          `json:"property_id" binding:"required"`
	Lat              *float64        `json:"lat" binding:"required"`
	Lon              *float64        `json:"lon" binding:"required"`
	Profile          PropertyProfile `json:"profile"`
	EnableStreetView bool            `json:"enable_street_view"`
}

// ErrorResponse is returned for any failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}
