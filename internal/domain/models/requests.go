package models

// Requests for the prediction HTTP endpoints. Defined in domain for consistency and reuse.

type EnsemblePredictRequest struct {
	Symbol          string   `json:"symbol" validate:"required,min=1,max=20"`
	CurrentPrice    *float64 `json:"current_price" validate:"omitempty,gt=0"`
	ShockSimulation bool     `json:"shock_simulation"`
}

type EnsembleGetRequest struct {
	Symbol          string `param:"symbol" validate:"required,min=1,max=20"`
	ShockSimulation bool   `query:"shock_simulation"`
}

type HistoryRequest struct {
	Symbol string `param:"symbol" validate:"required,min=1,max=20"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
	Since  string `query:"since"`
}

// PriceOrZero returns the optional price, or 0 when it was not supplied.
func (r *EnsemblePredictRequest) PriceOrZero() float64 {
	if r.CurrentPrice == nil {
		return 0
	}
	return *r.CurrentPrice
}
