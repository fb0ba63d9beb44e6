package handler

import (
	"verdeck/internal/document"
	"verdeck/internal/verification/models"
	"verdeck/internal/verification/service"
	"verdeck/pkg/platform/audit"
)

// The domain models carry their own JSON tags, so responses mostly wrap them.
// The wrappers exist to pin the envelope shape independently of the models.

type entityResponse struct {
	Entity *models.Entity `json:"entity"`
}

func fromEntity(entity *models.Entity) entityResponse {
	return entityResponse{Entity: entity}
}

func fromDetail(detail *service.EntityDetail) *service.EntityDetail {
	return detail
}

type recordResponse struct {
	Document document.Record `json:"document"`
}

func fromRecord(record document.Record) recordResponse {
	return recordResponse{Document: record}
}

type trailResponse struct {
	Entries []audit.Entry `json:"entries"`
}

func fromTrail(entries []audit.Entry) trailResponse {
	if entries == nil {
		entries = []audit.Entry{}
	}
	return trailResponse{Entries: entries}
}

type queueResponse struct {
	Entities []*models.Entity `json:"entities"`
}

func fromQueue(entities []*models.Entity) queueResponse {
	if entities == nil {
		entities = []*models.Entity{}
	}
	return queueResponse{Entities: entities}
}
