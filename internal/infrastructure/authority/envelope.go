package authority

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
)

var jsonNull = json.RawMessage("null")

// envelope is the {success, data} wrapper most endpoints answer with
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// unwrap returns the payload of a 2xx body. Wrapped and bare bodies are both
// accepted; a wrapped body with success=false is a remote rejection.
func unwrap(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return jsonNull, nil
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Success == nil {
		return json.RawMessage(trimmed), nil
	}
	if !*env.Success {
		return nil, shared.NewRemoteError(status, errorMessage(env.Message, env.Error))
	}
	if len(env.Data) == 0 {
		return jsonNull, nil
	}
	return env.Data, nil
}

// parseRemoteError builds the error of a non-2xx response from its
// {error, message} body, falling back to a generic message.
func parseRemoteError(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(bytes.TrimSpace(body), &env); err != nil {
		return shared.NewRemoteError(status, "")
	}
	return shared.NewRemoteError(status, errorMessage(env.Message, env.Error))
}

// errorMessage prefers message, then error when it is a plain string
func errorMessage(message string, rawError json.RawMessage) string {
	if m := strings.TrimSpace(message); m != "" {
		return m
	}
	var s string
	if err := json.Unmarshal(rawError, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// {"error": {"code": ..., "message": ...}}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rawError, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

// flexibleID accepts identifiers sent either as JSON strings or numbers
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
