package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/bulkimport"
	"github.com/jhoicas/Trazabilidad-api/internal/application/catalog"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/followup"
	"github.com/jhoicas/Trazabilidad-api/internal/application/inventory"
	"github.com/jhoicas/Trazabilidad-api/internal/application/movement"
	"github.com/jhoicas/Trazabilidad-api/internal/application/trazabilidad"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/cache"
	apphttp "github.com/jhoicas/Trazabilidad-api/internal/interfaces/http"
	"github.com/jhoicas/Trazabilidad-api/internal/testutil/memstore"
	pkgjwt "github.com/jhoicas/Trazabilidad-api/pkg/jwt"
)

// buildAPI arma el router completo sobre el almacén en memoria.
func buildAPI(t *testing.T, checks map[string]apphttp.HealthCheck) (*fiber.App, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.AddUser(entity.User{ID: testUserID, Name: "Ana Torres", Role: entity.RoleTecnico})

	repos := store.Repos()
	users := cache.NewUserDirectory(store.Users(), 16, time.Minute)
	contacts := cache.NewContactDirectory(store.Contacts(), 16, time.Minute)
	issuer := documents.NewIssuer(repos.Documents, &memstore.Renderer{}, memstore.NewArtifacts(), users, time.Second)
	executor := followup.NewExecutor(repos.FollowUps, issuer, contacts, &memstore.Mailer{}, memstore.NewDeadLetters(), 3)
	trail := audit.NewTrail(store.Audit())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AppName:       "trazabilidad-test",
		Orchestrator:  movement.NewOrchestrator(store, repos.Equipment, repos.Batches, issuer, executor, trail, movement.Options{}),
		Importer:      bulkimport.NewProcessor(store, issuer, executor, trail, 50),
		ImportMaxRows: 50,
		Equipment:     inventory.NewEquipmentUseCase(store, repos.Equipment, repos.Movements, trail),
		Types:         catalog.NewEquipmentTypes(repos.EquipmentTypes),
		Issuer:        issuer,
		Trazabilidad:  trazabilidad.NewQuery(repos.Movements, users),
		Audit:         trail,
		JWTSecret:     testJWTSecret,
		Checks:        checks,
	})
	return app, store
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + token
}

func postJSON(t *testing.T, app *fiber.App, path, auth, key string, body any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if key != "" {
		req.Header.Set(apphttp.HeaderIdempotencyKey, key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestRouter_TransferOutYReintento(t *testing.T) {
	app, store := buildAPI(t, nil)
	store.SeedEquipment(
		entity.EquipmentItem{Serial: "A", Type: "MONITOR", Brand: "Dell", Model: "P24", Status: entity.StatusAvailable},
		entity.EquipmentItem{Serial: "B", Type: "MONITOR", Brand: "Dell", Model: "P24", Status: entity.StatusAvailable},
	)
	body := dto.TransferOutRequest{Serials: []string{"a", "b"}, DestinationSite: "PV-5", RecipientName: "Maria"}
	auth := bearer(t, entity.RoleTecnico)

	resp, raw := postJSON(t, app, "/api/movements/transfer-out", auth, "lote-1", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var first dto.BatchResult
	require.NoError(t, json.Unmarshal(raw, &first))
	assert.Regexp(t, `^ENT-\d{4}-000001$`, first.Reference)
	assert.Equal(t, 2, first.MovedCount)
	assert.False(t, first.Replayed)

	resp, raw = postJSON(t, app, "/api/movements/transfer-out", auth, "lote-1", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var again dto.BatchResult
	require.NoError(t, json.Unmarshal(raw, &again))
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Reference, again.Reference)
	assert.Len(t, store.Movements(), 2)
}

func TestRouter_ErroresDeDominioComoHTTP(t *testing.T) {
	app, store := buildAPI(t, nil)
	store.SeedEquipment(entity.EquipmentItem{Serial: "D", Status: entity.StatusDeployed, Location: "PV-1"})
	auth := bearer(t, entity.RoleTecnico)

	resp, _ := postJSON(t, app, "/api/movements/transfer-out", auth, "",
		dto.TransferOutRequest{Serials: []string{"D"}, DestinationSite: "PV-5", RecipientName: "Maria"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = postJSON(t, app, "/api/movements/transfer-out", auth, "",
		dto.TransferOutRequest{DestinationSite: "PV-5", RecipientName: "Maria"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, entity.StatusDeployed, store.Item("D").Status)
}

func TestRouter_Roles(t *testing.T) {
	app, store := buildAPI(t, nil)
	store.SeedEquipment(entity.EquipmentItem{Serial: "A", Status: entity.StatusAvailable})

	tests := []struct {
		name     string
		path     string
		role     string
		body     any
		wantCode int
	}{
		{"consulta no entrega", "/api/movements/transfer-out", entity.RoleConsulta,
			dto.TransferOutRequest{Serials: []string{"A"}, DestinationSite: "PV-5", RecipientName: "Maria"}, http.StatusForbidden},
		{"tecnico no da de baja", "/api/movements/write-off", entity.RoleTecnico,
			dto.WriteOffRequest{Serials: []string{"A"}, AuthorizerName: "Jefe"}, http.StatusForbidden},
		{"sin token", "/api/movements/write-off", "",
			dto.WriteOffRequest{Serials: []string{"A"}, AuthorizerName: "Jefe"}, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth := ""
			if tc.role != "" {
				auth = bearer(t, tc.role)
			}
			resp, _ := postJSON(t, app, tc.path, auth, "", tc.body)
			assert.Equal(t, tc.wantCode, resp.StatusCode)
		})
	}
	assert.Equal(t, entity.StatusAvailable, store.Item("A").Status)

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	req.Header.Set("Authorization", bearer(t, entity.RoleTecnico))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/equipment?status=AVAILABLE", nil)
	req.Header.Set("Authorization", bearer(t, entity.RoleConsulta))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Health(t *testing.T) {
	app, _ := buildAPI(t, map[string]apphttp.HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	degraded, _ := buildAPI(t, map[string]apphttp.HealthCheck{
		"redis": func(context.Context) error { return errors.New("sin conexión") },
	})
	resp, err = degraded.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
}
