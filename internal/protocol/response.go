package protocol

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response HTTP统一响应
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SendSuccess 发送成功响应
func SendSuccess(w http.ResponseWriter, message string, data interface{}) {
	send(w, http.StatusOK, true, message, data)
}

// SendError 发送错误响应
func SendError(w http.ResponseWriter, message string, statusCode int) {
	send(w, statusCode, false, message, nil)
}

func send(w http.ResponseWriter, statusCode int, success bool, message string, data interface{}) {
	resp := struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Data    interface{} `json:"data,omitempty"`
	}{success, message, data}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("编码响应失败: %v", err)
	}
}
