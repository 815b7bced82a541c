package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/internal/checkpoints"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

type stubCheckpointService struct {
	createFn     func(ctx context.Context, stationID, createdBy uuid.UUID, input checkpoints.CreateCheckpointInput) (*checkpoints.CheckpointDTO, error)
	getFn        func(ctx context.Context, stationID, checkpointID uuid.UUID) (*checkpoints.CheckpointDTO, error)
	listFn       func(ctx context.Context, input checkpoints.ListCheckpointsInput) (*checkpoints.CheckpointListResult, error)
	updateFn     func(ctx context.Context, stationID, checkpointID uuid.UUID, input checkpoints.UpdateCheckpointInput) (*checkpoints.CheckpointDTO, error)
	deactivateFn func(ctx context.Context, stationID, checkpointID uuid.UUID) error
	issueQRFn    func(ctx context.Context, stationID, checkpointID uuid.UUID) (*checkpoints.QRCodeDTO, error)
	rotateQRFn   func(ctx context.Context, stationID, checkpointID uuid.UUID) (*checkpoints.QRCodeDTO, error)
}

func (s stubCheckpointService) Create(ctx context.Context, stationID, createdBy uuid.UUID, input checkpoints.CreateCheckpointInput) (*checkpoints.CheckpointDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, stationID, createdBy, input)
	}
	return &checkpoints.CheckpointDTO{}, nil
}

func (s stubCheckpointService) Get(ctx context.Context, stationID, checkpointID uuid.UUID) (*checkpoints.CheckpointDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, stationID, checkpointID)
	}
	return &checkpoints.CheckpointDTO{}, nil
}

func (s stubCheckpointService) List(ctx context.Context, input checkpoints.ListCheckpointsInput) (*checkpoints.CheckpointListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return &checkpoints.CheckpointListResult{}, nil
}

func (s stubCheckpointService) Update(ctx context.Context, stationID, checkpointID uuid.UUID, input checkpoints.UpdateCheckpointInput) (*checkpoints.CheckpointDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, stationID, checkpointID, input)
	}
	return &checkpoints.CheckpointDTO{}, nil
}

func (s stubCheckpointService) Deactivate(ctx context.Context, stationID, checkpointID uuid.UUID) error {
	if s.deactivateFn != nil {
		return s.deactivateFn(ctx, stationID, checkpointID)
	}
	return nil
}

func (s stubCheckpointService) IssueQR(ctx context.Context, stationID, checkpointID uuid.UUID) (*checkpoints.QRCodeDTO, error) {
	if s.issueQRFn != nil {
		return s.issueQRFn(ctx, stationID, checkpointID)
	}
	return &checkpoints.QRCodeDTO{}, nil
}

func (s stubCheckpointService) RotateQR(ctx context.Context, stationID, checkpointID uuid.UUID) (*checkpoints.QRCodeDTO, error) {
	if s.rotateQRFn != nil {
		return s.rotateQRFn(ctx, stationID, checkpointID)
	}
	return &checkpoints.QRCodeDTO{}, nil
}

func TestCheckpointCreateSuccess(t *testing.T) {
	stationID := uuid.New()
	adminID := uuid.New()

	var captured checkpoints.CreateCheckpointInput
	svc := stubCheckpointService{
		createFn: func(_ context.Context, sid, createdBy uuid.UUID, input checkpoints.CreateCheckpointInput) (*checkpoints.CheckpointDTO, error) {
			if sid != stationID {
				t.Fatalf("expected station %s got %s", stationID, sid)
			}
			if createdBy != adminID {
				t.Fatalf("expected creator %s got %s", adminID, createdBy)
			}
			captured = input
			return &checkpoints.CheckpointDTO{
				ID:          uuid.New(),
				StationID:   sid,
				Name:        input.Name,
				Coordinates: input.Coordinates,
				QRCodeID:    uuid.New(),
				IsActive:    true,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}, nil
		},
	}
	handler := CheckpointCreate(svc, nil)

	body := []byte(`{
		"name": "  Main Gate  ",
		"coordinates": {"lat": 18.5204, "lng": 73.8567},
		"scan_radius_m": 75,
		"tags": ["gate", "night"]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkpoints", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, stationID, adminID, enums.SystemRoleAdmin)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Name != "Main Gate" {
		t.Fatalf("expected trimmed name, got %q", captured.Name)
	}
	if captured.ScanRadiusM == nil || *captured.ScanRadiusM != 75 {
		t.Fatalf("expected radius 75 got %v", captured.ScanRadiusM)
	}

	var envelope struct {
		Data checkpoints.CheckpointDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Name != "Main Gate" {
		t.Fatalf("unexpected name %q", envelope.Data.Name)
	}
	if envelope.Data.Coordinates != (types.LatLng{Lat: 18.5204, Lng: 73.8567}) {
		t.Fatalf("unexpected coordinates %+v", envelope.Data.Coordinates)
	}
}

func TestCheckpointCreateMissingCoordinates(t *testing.T) {
	handler := CheckpointCreate(stubCheckpointService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkpoints", bytes.NewReader([]byte(`{"name":"No Coords"}`)))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, uuid.New(), uuid.New(), enums.SystemRoleAdmin)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCheckpointGetNotFound(t *testing.T) {
	svc := stubCheckpointService{
		getFn: func(_ context.Context, _, _ uuid.UUID) (*checkpoints.CheckpointDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "checkpoint not found")
		},
	}
	handler := CheckpointGet(svc, nil)

	checkpointID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkpoints/"+checkpointID.String(), nil)
	req = withActor(req, uuid.New(), uuid.New(), enums.SystemRoleOfficer)
	req = addRouteParam(req, "checkpointId", checkpointID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCheckpointListInvalidIsActive(t *testing.T) {
	handler := CheckpointList(stubCheckpointService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkpoints?is_active=sometimes", nil)
	req = withActor(req, uuid.New(), uuid.New(), enums.SystemRoleOfficer)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCheckpointListForwardsFilters(t *testing.T) {
	stationID := uuid.New()

	var captured checkpoints.ListCheckpointsInput
	svc := stubCheckpointService{
		listFn: func(_ context.Context, input checkpoints.ListCheckpointsInput) (*checkpoints.CheckpointListResult, error) {
			captured = input
			return &checkpoints.CheckpointListResult{}, nil
		},
	}
	handler := CheckpointList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkpoints?is_active=true&q=gate&limit=25", nil)
	req = withActor(req, stationID, uuid.New(), enums.SystemRoleOfficer)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if captured.StationID != stationID {
		t.Fatalf("expected station %s got %s", stationID, captured.StationID)
	}
	if captured.Filters.IsActive == nil || !*captured.Filters.IsActive {
		t.Fatalf("expected is_active filter true, got %v", captured.Filters.IsActive)
	}
	if captured.Filters.Query != "gate" {
		t.Fatalf("expected query filter, got %q", captured.Filters.Query)
	}
	if captured.Pagination.Limit != 25 {
		t.Fatalf("expected limit 25 got %d", captured.Pagination.Limit)
	}
}

func TestCheckpointQRRotateSuccess(t *testing.T) {
	checkpointID := uuid.New()
	svc := stubCheckpointService{
		rotateQRFn: func(_ context.Context, _, cid uuid.UUID) (*checkpoints.QRCodeDTO, error) {
			return &checkpoints.QRCodeDTO{
				CheckpointID: cid,
				Payload:      "cp:v1:rotated",
				IssuedAt:     time.Now(),
			}, nil
		},
	}
	handler := CheckpointQRRotate(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkpoints/"+checkpointID.String()+"/qr/rotate", nil)
	req = withActor(req, uuid.New(), uuid.New(), enums.SystemRoleAdmin)
	req = addRouteParam(req, "checkpointId", checkpointID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data checkpoints.QRCodeDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CheckpointID != checkpointID {
		t.Fatalf("expected checkpoint %s got %s", checkpointID, envelope.Data.CheckpointID)
	}
	if envelope.Data.Payload != "cp:v1:rotated" {
		t.Fatalf("unexpected payload %q", envelope.Data.Payload)
	}
}

func TestCheckpointDeactivateSuccess(t *testing.T) {
	checkpointID := uuid.New()
	called := false
	svc := stubCheckpointService{
		deactivateFn: func(_ context.Context, _, cid uuid.UUID) error {
			called = true
			if cid != checkpointID {
				t.Fatalf("expected checkpoint %s got %s", checkpointID, cid)
			}
			return nil
		},
	}
	handler := CheckpointDeactivate(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/checkpoints/"+checkpointID.String(), nil)
	req = withActor(req, uuid.New(), uuid.New(), enums.SystemRoleAdmin)
	req = addRouteParam(req, "checkpointId", checkpointID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !called {
		t.Fatalf("expected deactivate called")
	}
}
