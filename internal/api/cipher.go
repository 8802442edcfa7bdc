package api

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/RowanDark/xorbreak/internal/cipher"
)

// CipherOperationInfo describes one registered operation.
type CipherOperationInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
}

// CipherExecuteRequest runs either a single operation or a pipeline. When
// Operations is set, Operation and Config are ignored.
type CipherExecuteRequest struct {
	Operation  string                   `json:"operation,omitempty"`
	Config     map[string]interface{}   `json:"config,omitempty"`
	Operations []cipher.OperationConfig `json:"operations,omitempty"`
	Input      string                   `json:"input"`
}

// CipherExecuteResponse carries the operation output.
type CipherExecuteResponse struct {
	Output string `json:"output"`
}

// CipherDetectRequest asks for the likely encodings of Input. With Decode set
// every detection is also applied.
type CipherDetectRequest struct {
	Input  string `json:"input"`
	Decode bool   `json:"decode,omitempty"`
}

// CipherDecodeResult is a detection together with its decoded bytes in hex.
type CipherDecodeResult struct {
	cipher.DetectionResult
	DecodedHex string `json:"decoded_hex,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CipherDetectResponse represents the detection result.
type CipherDetectResponse struct {
	Detections []cipher.DetectionResult `json:"detections"`
	Decoded    []CipherDecodeResult     `json:"decoded,omitempty"`
}

func (s *Server) handleCipherListOperations(w http.ResponseWriter, r *http.Request) {
	opType := cipher.OperationType(r.URL.Query().Get("type"))
	ops := cipher.ListOperationsByType(opType)
	out := make([]CipherOperationInfo, 0, len(ops))
	for _, op := range ops {
		_, reversible := op.Reverse()
		out = append(out, CipherOperationInfo{
			Name:        op.Name(),
			Type:        string(op.Type()),
			Description: op.Description(),
			Reversible:  reversible,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"operations": out})
}

func (s *Server) handleCipherExecute(w http.ResponseWriter, r *http.Request) {
	var req CipherExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pipeline := &cipher.Pipeline{Operations: req.Operations}
	if len(pipeline.Operations) == 0 {
		if req.Operation == "" {
			http.Error(w, "operation or operations is required", http.StatusBadRequest)
			return
		}
		pipeline.Operations = []cipher.OperationConfig{{Name: req.Operation, Parameters: req.Config}}
	}
	for _, op := range pipeline.Operations {
		if _, ok := cipher.GetOperation(op.Name); !ok {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown operation: %s", op.Name)})
			return
		}
	}

	result, err := pipeline.Execute(r.Context(), []byte(req.Input))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusUnprocessableEntity
		}
		s.writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CipherExecuteResponse{Output: string(result)})
}

func (s *Server) handleCipherDetect(w http.ResponseWriter, r *http.Request) {
	var req CipherDetectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Input == "" {
		http.Error(w, "input field is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	detections, err := cipher.NewSmartDetector().Detect(ctx, []byte(req.Input))
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	resp := CipherDetectResponse{Detections: detections}
	if resp.Detections == nil {
		resp.Detections = []cipher.DetectionResult{}
	}

	if req.Decode {
		results, err := cipher.DecodeAll(ctx, []byte(req.Input))
		if err != nil {
			s.writeError(w, err)
			return
		}
		for _, res := range results {
			out := CipherDecodeResult{DetectionResult: res.Detection, Error: res.Error}
			if res.Success {
				out.DecodedHex = hex.EncodeToString(res.Decoded)
			}
			resp.Decoded = append(resp.Decoded, out)
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
