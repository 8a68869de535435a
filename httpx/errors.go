package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/model"
	"github.com/mbolis/timed-survey/store"
	"github.com/pkg/errors"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Will log a debug message, and send a JSON response with status 400
// naming the invalid field
func LogValidation(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Debugf("%s: %s", code, err)

	body := ErrorBody{Error: err.Error()}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		body = ErrorBody{Error: verr.Msg, Field: verr.Field}
	}
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, body)
}

// Will map a store error to its HTTP status: 400 for invalid input,
// 404 for missing rows, 409 for version conflicts, 500 otherwise
func LogStoreError(w http.ResponseWriter, r *http.Request, code string, id any, err error) {
	switch {
	case model.IsValidation(err):
		LogValidation(w, r, code, err)
	case errors.Is(err, store.ErrNotFound):
		LogNotFound(w, code, id)
	case errors.Is(err, store.ErrConflict):
		LogStatus(w, http.StatusConflict, log.DebugLevel, code+".conflict")
	default:
		LogInternalError(w, code, err)
	}
}
