package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultResponse envoltorio de las operaciones del motor: success + data, o el error de negocio.
type ResultResponse struct {
	Success bool           `json:"success"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Data    any            `json:"data,omitempty"`
}
