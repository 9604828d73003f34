package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox entity types understood by the search sync worker.
const (
	EntityHackathon   = "hackathon"
	EntityParticipant = "participant"
	EntityTeam        = "team"

	OpUpsert = "UPSERT"
	OpDelete = "DELETE"
)

// AddOutboxEvent inserts one event into the outbox. Call it with the same
// transaction that wrote the entity so the event commits with it.
func AddOutboxEvent(tx *gorm.DB, entityType string, entityID uuid.UUID, op string, payload any) error {
	var data datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal outbox payload: %w", err)
		}
		data = datatypes.JSON(b)
	}

	event := models.Outbox{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    data,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("create outbox event: %w", err)
	}
	return nil
}

// AddBatchOutboxEvents inserts one event per id in a single statement.
// Used for cascading updates (e.g., reindex every member of new teams).
func AddBatchOutboxEvents(tx *gorm.DB, entityType string, op string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	events := make([]models.Outbox, 0, len(ids))
	for _, id := range ids {
		events = append(events, models.Outbox{EntityType: entityType, EntityID: id, Op: op})
	}
	if err := tx.Create(&events).Error; err != nil {
		return fmt.Errorf("insert batch outbox for %s: %w", entityType, err)
	}
	return nil
}
