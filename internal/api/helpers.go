package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

func decodeJSON(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}

// pollTicker paces the websocket progress stream; restores complete in
// seconds, so sub-second polling keeps the stream responsive without
// hammering the progress tracker's mutex.
func pollTicker() *time.Ticker {
	return time.NewTicker(250 * time.Millisecond)
}
