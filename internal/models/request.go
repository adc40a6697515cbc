package models

// ReconcileRequest representa el request para lanzar una reconciliación
type ReconcileRequest struct {
	Markets   []string `json:"markets"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`

	IDWorkspace string `json:"id_workspace,omitempty"`
	FlowNS      string `json:"flow_ns,omitempty"`
}

// GetMarkets implementa la interfaz del validator
func (r *ReconcileRequest) GetMarkets() []string {
	return r.Markets
}

// GetDateRange implementa la interfaz del validator
func (r *ReconcileRequest) GetDateRange() (string, string) {
	return r.StartDate, r.EndDate
}
