package models

type WebResponse[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	Data      T      `json:"data"`
}
