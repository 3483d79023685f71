package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
)

const maxErrorBody = 64 << 10

// ErrStoreAPI marks errors whose message was written by the store API itself.
var ErrStoreAPI = errors.New("store api error")

// ReadBody returns the body of a 2xx response, or the upstream error for any other status.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, UpstreamError(resp.StatusCode, body)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBadGateway, err)
	}
	return data, nil
}

// DecodeJSON reads a 2xx response into out.
func DecodeJSON(resp *http.Response, out interface{}) error {
	data, err := ReadBody(resp)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.ErrMalformedPayload, err)
	}
	return nil
}

// UpstreamError keeps the store API's own message so callers can show it verbatim.
func UpstreamError(status int, body []byte) *apperrors.Error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = strings.TrimSpace(payload.Message)
		}
	}
	if msg == "" {
		return apperrors.New(status, http.StatusText(status), fmt.Errorf("upstream status %d", status))
	}
	return apperrors.New(status, msg, ErrStoreAPI)
}

// ServerMessage returns the message the store API put in its error body, if there was one.
func ServerMessage(err error) (string, bool) {
	var appErr *apperrors.Error
	if !errors.Is(err, ErrStoreAPI) || !errors.As(err, &appErr) {
		return "", false
	}
	return appErr.Message, true
}
