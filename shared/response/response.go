package response

import (
	"encoding/json"
	"net/http"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{Status: "success", Data: data})
}

func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, APIResponse{Status: "error", Message: msg})
}

// ErrorCode is Error with a machine readable code ("missing_required_account").
func ErrorCode(w http.ResponseWriter, status int, code, msg string) {
	write(w, status, APIResponse{Status: "error", Code: code, Message: msg})
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
