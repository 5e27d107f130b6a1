package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AdvisoryCategory string

const (
	CategoryIrrigation AdvisoryCategory = "irrigation"
	CategoryWeather    AdvisoryCategory = "weather"
	CategoryFertilizer AdvisoryCategory = "fertilizer"
	CategoryPest       AdvisoryCategory = "pest"
)

// AdvisoryStatus grades an advisory from good through caution to alert.
type AdvisoryStatus string

const (
	StatusGood    AdvisoryStatus = "good"
	StatusCaution AdvisoryStatus = "caution"
	StatusAlert   AdvisoryStatus = "alert"
)

// Advisory is a categorical recommendation derived from a snapshot.
type Advisory struct {
	ID       string           `json:"id"`
	Category AdvisoryCategory `json:"category"`
	Status   AdvisoryStatus   `json:"status"`
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Icon     string           `json:"icon,omitempty"`
	Action   string           `json:"action,omitempty"`
}

// AdvisoryRecord is an advisory persisted together with where and when it was derived.
type AdvisoryRecord struct {
	ID        [16]byte  `json:"id"`
	Advisory  Advisory  `json:"advisory"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON renders the record ID as a UUID string.
func (r AdvisoryRecord) MarshalJSON() ([]byte, error) {
	type Alias AdvisoryRecord
	return json.Marshal(&struct {
		ID string `json:"id"`
		*Alias
	}{
		ID:    uuid.UUID(r.ID).String(),
		Alias: (*Alias)(&r),
	})
}
