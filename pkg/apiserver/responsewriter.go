package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/sirupsen/logrus"
)

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status != 0 {
		return
	}
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

func writeError(w http.ResponseWriter, httpStatus int, err error) {
	logrus.Errorf("request failed: %v", err)
	writeJSON(w, httpStatus, model.ErrorResponse{
		Status:  httpStatus,
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, httpStatus int, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		httpStatus = http.StatusInternalServerError
		res = []byte(`{"status":500,"msg":"encoding response failed"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(res)
}
