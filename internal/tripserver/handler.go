package tripserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tripmate-app/tripmate/internal/auth"
	"github.com/tripmate-app/tripmate/internal/models"
)

// Handler serves the trip API. A server instance hosts exactly one trip,
// identified by tripID and protected by the bcrypt hash of its key.
type Handler struct {
	store       *Storage
	jwt         *auth.JWTManager
	log         *slog.Logger
	tripID      string
	tripKeyHash string
}

func NewHandler(store *Storage, jwt *auth.JWTManager, tripID, tripKeyHash string, log *slog.Logger) *Handler {
	return &Handler{
		store:       store,
		jwt:         jwt,
		log:         log,
		tripID:      tripID,
		tripKeyHash: tripKeyHash,
	}
}

// SetupRoutes registers every JSON operation on the API.
func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.tokenOp(), h.token)
	huma.Register(api, h.collectionOp(), h.collection)
	huma.Register(api, h.setRecordOp(), h.setRecord)
	huma.Register(api, h.deleteRecordOp(), h.deleteRecord)
	huma.Register(api, h.addUserOp(), h.addUser)
	huma.Register(api, h.removeUserOp(), h.removeUser)
	huma.Register(api, h.healthOp(), h.health)
}

func (h *Handler) token(ctx context.Context, input *tokenInput) (*tokenOutput, error) {
	if input.Body.TripID != h.tripID {
		h.log.Warn("Token exchange for unknown trip", "trip_id", input.Body.TripID)
		return nil, huma.Error401Unauthorized("unknown trip")
	}
	if err := auth.VerifyTripKey(h.tripKeyHash, input.Body.TripKey); err != nil {
		h.log.Warn("Token exchange with bad trip key", "trip_id", input.Body.TripID)
		return nil, huma.Error401Unauthorized("invalid trip key")
	}

	token, err := h.jwt.Generate(h.tripID)
	if err != nil {
		h.log.Error("Failed to generate token", "error", err)
		return nil, huma.Error500InternalServerError("failed to generate token")
	}

	return &tokenOutput{Body: tokenResponse{Token: token}}, nil
}

func (h *Handler) collection(ctx context.Context, input *collectionInput) (*collectionOutput, error) {
	if input.Collection == "users" {
		users, rev, err := h.store.Users(ctx)
		if err != nil {
			h.log.Error("Failed to load roster", "error", err)
			return nil, huma.Error500InternalServerError("failed to load roster")
		}
		return &collectionOutput{Body: snapshotResponse{Revision: rev, Users: users}}, nil
	}

	records, rev, err := h.store.Records(ctx, input.Collection)
	if err != nil {
		h.log.Error("Failed to load collection", "collection", input.Collection, "error", err)
		return nil, huma.Error500InternalServerError("failed to load collection")
	}
	return &collectionOutput{Body: snapshotResponse{Revision: rev, Records: records}}, nil
}

func (h *Handler) setRecord(ctx context.Context, input *setRecordInput) (*statusOutput, error) {
	if !json.Valid(input.RawBody) {
		return nil, huma.Error422UnprocessableEntity("record body must be valid JSON")
	}

	if err := h.store.SetRecord(ctx, input.Collection, input.ID, input.RawBody); err != nil {
		h.log.Error("Failed to store record", "collection", input.Collection, "id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to store record")
	}

	h.log.Debug("Record stored", "collection", input.Collection, "id", input.ID)
	return &statusOutput{Body: statusResponse{Status: "ok"}}, nil
}

func (h *Handler) deleteRecord(ctx context.Context, input *deleteRecordInput) (*statusOutput, error) {
	if err := h.store.DeleteRecord(ctx, input.Collection, input.ID); err != nil {
		h.log.Error("Failed to delete record", "collection", input.Collection, "id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete record")
	}
	return &statusOutput{Body: statusResponse{Status: "ok"}}, nil
}

func (h *Handler) addUser(ctx context.Context, input *memberInput) (*statusOutput, error) {
	name := models.NormalizeName(input.Body.Value)
	if name == "" {
		return nil, huma.Error422UnprocessableEntity("name must not be blank")
	}

	err := h.store.AddUser(ctx, name)
	if errors.Is(err, ErrUserExists) {
		// Set semantics: adding an existing member succeeds quietly.
		return &statusOutput{Body: statusResponse{Status: "ok"}}, nil
	}
	if err != nil {
		h.log.Error("Failed to add user", "name", name, "error", err)
		return nil, huma.Error500InternalServerError("failed to add user")
	}

	h.log.Info("Roster member added", "name", name)
	return &statusOutput{Body: statusResponse{Status: "ok"}}, nil
}

func (h *Handler) removeUser(ctx context.Context, input *memberInput) (*statusOutput, error) {
	name := models.NormalizeName(input.Body.Value)
	if name == "" {
		return nil, huma.Error422UnprocessableEntity("name must not be blank")
	}

	if err := h.store.RemoveUser(ctx, name); err != nil {
		h.log.Error("Failed to remove user", "name", name, "error", err)
		return nil, huma.Error500InternalServerError("failed to remove user")
	}

	h.log.Info("Roster member removed", "name", name)
	return &statusOutput{Body: statusResponse{Status: "ok"}}, nil
}

func (h *Handler) health(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	return &healthOutput{Body: healthResponse{Status: "ok"}}, nil
}
