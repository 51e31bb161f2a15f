// Package event defines the telemetry event record and its wire format.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assetsim/internal/telemetry"
)

// Event is one timestamped record of sensor readings and the derived
// defect probability for one asset. Immutable once built.
//
// The downstream ingestion schema is sensitive to field order and
// types, so the JSON layout below must not be reordered.
type Event struct {
	ID                string  `json:"Id"`
	AssetID           string  `json:"AssetId"`
	ProductID         string  `json:"ProductId"`
	Timestamp         string  `json:"Timestamp"`
	BatchID           string  `json:"BatchId"`
	Vibration         float64 `json:"Vibration"`
	Temperature       float64 `json:"Temperature"`
	Humidity          float64 `json:"Humidity"`
	Speed             float64 `json:"Speed"`
	DefectProbability float64 `json:"DefectProbability"`
}

// New assembles an event with a fresh UUID and an ISO-8601 UTC timestamp.
func New(assetID, productID, batchID string, ts time.Time, r telemetry.Reading, defectProbability float64) *Event {
	return &Event{
		ID:                uuid.NewString(),
		AssetID:           assetID,
		ProductID:         productID,
		Timestamp:         ts.UTC().Format(time.RFC3339Nano),
		BatchID:           batchID,
		Vibration:         r.Vibration,
		Temperature:       r.Temperature,
		Humidity:          r.Humidity,
		Speed:             r.Speed,
		DefectProbability: defectProbability,
	}
}

// Marshal serializes the event for delivery to the sink.
func (e *Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling event %s: %w", e.ID, err)
	}
	return data, nil
}
