package response

import (
	"encoding/json"
	"time"
)

type Status struct {
	State          string    `json:"state"`
	Connectivity   string    `json:"connectivity"`
	WaitingForData bool      `json:"waiting_for_data"`
	LastSuccess    time.Time `json:"last_success,omitempty"`
	WakeLocked     bool      `json:"wake_locked"`
	Received       uint64    `json:"received"`
	Accepted       uint64    `json:"accepted"`
	Failed         uint64    `json:"failed"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	type Alias Status
	aux := &struct {
		LastSuccess interface{} `json:"last_success,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(&s),
	}

	if !s.LastSuccess.IsZero() {
		aux.LastSuccess = s.LastSuccess.UTC().Format(time.RFC3339Nano)
	}

	return json.Marshal(aux)
}

type Message struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

type Position struct {
	ID                 int64     `json:"id"`
	DeviceID           string    `json:"device_id"`
	Time               time.Time `json:"time"`
	Latitude           float64   `json:"lat"`
	Longitude          float64   `json:"lon"`
	HorizontalAccuracy float64   `json:"hacc"`
	Altitude           float64   `json:"altitude"`
	Speed              float64   `json:"speed"`
	Course             float64   `json:"bearing"`
	Battery            float64   `json:"batt"`
}
