package utils

import (
	"encoding/json"

	"go.uber.org/zap"
)

// UnmarshalAndHandle decodifica data como T y llama a handler. Un payload
// inválido se registra y se descarta; devuelve si se llegó a manejar.
func UnmarshalAndHandle[T any](log *zap.Logger, data json.RawMessage, handler func(T)) bool {
	var evt T
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Warn("Failed to unmarshal event data", zap.ByteString("payload", data), zap.Error(err))
		return false
	}
	handler(evt)
	return true
}
