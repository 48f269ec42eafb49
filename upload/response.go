package upload

import (
	"encoding/json"
	"errors"
)

// Response is the agent's verdict for an upload.
type Response struct {
	Success      bool   `json:"success"`
	FilePath     string `json:"filePath,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// wireResponse tells a missing "success" apart from false.
type wireResponse struct {
	Success      *bool   `json:"success"`
	FilePath     *string `json:"filePath"`
	ErrorMessage *string `json:"errorMessage"`
}

var errMissingSuccess = errors.New(`response has no "success" field`)

// ParseResponse decodes an agent response body. The body must be a JSON
// object with a boolean "success"; filePath and errorMessage must be
// strings when present. Unknown fields are ignored.
func ParseResponse(data []byte) (Response, error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return Response{}, err
	}
	if w.Success == nil {
		return Response{}, errMissingSuccess
	}
	resp := Response{Success: *w.Success}
	if w.FilePath != nil {
		resp.FilePath = *w.FilePath
	}
	if w.ErrorMessage != nil {
		resp.ErrorMessage = *w.ErrorMessage
	}
	return resp, nil
}
