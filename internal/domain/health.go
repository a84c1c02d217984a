package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// ReportMetrics is returned by GET /v1/metrics/reports.
type ReportMetrics struct {
	ReportsGenerated  int64   `json:"reportsGenerated"`
	ExportsGenerated  int64   `json:"exportsGenerated"`
	StoreErrors       int64   `json:"storeErrors"`
	CacheHits         int64   `json:"cacheHits"`
	CacheMisses       int64   `json:"cacheMisses"`
	CacheHitRate      float64 `json:"cacheHitRate"`
	LastReportFloors  int64   `json:"lastReportFloors"`
	LastReportUnits   int64   `json:"lastReportUnits"`
	LastReportTenants int64   `json:"lastReportTenants"`
	Period            string  `json:"period"`
}
