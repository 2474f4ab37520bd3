// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package dispatch

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/filmoteket/filmoteket/internal/models"
)

// RatingChunk is one dispatched batch of bulk rating rows.
type RatingChunk struct {
	Rows []models.RatingRow `json:"rows"`
}

// TitleChunk is one dispatched batch of bulk title rows.
type TitleChunk struct {
	Rows []models.TitleRow `json:"rows"`
}

// marshalChunk encodes a chunk into a message with a fresh uuid.
func marshalChunk(chunk any) (*message.Message, error) {
	data, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("marshal chunk: %w", err)
	}
	return message.NewMessage(uuid.NewString(), data), nil
}

// unmarshalChunk decodes a message payload into the given chunk type.
func unmarshalChunk(msg *message.Message, chunk any) error {
	if err := json.Unmarshal(msg.Payload, chunk); err != nil {
		return fmt.Errorf("unmarshal chunk %s: %w", msg.UUID, err)
	}
	return nil
}
