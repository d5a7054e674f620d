package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type EscrowResponse struct {
	Account          any    `json:"account"`
	AvailableBalance string `json:"available_balance"`
}
