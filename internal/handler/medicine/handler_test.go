package medicine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/internal/repository/memory"
	medicineService "github.com/jwalitptl/reminderd/internal/service/medicine"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/validator"
)

type noopSuperseder struct{}

func (noopSuperseder) Supersede(uuid.UUID) {}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	svc := medicineService.NewService(memory.NewMedicineRepository(), validator.New(), noopSuperseder{}, log)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetMedicine(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/medicines", gin.H{
		"name":     "Aspirin",
		"weekdays": []int{2, 4},
		"hour":     8,
		"minute":   30,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Status string `json:"status"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "success", created.Status)
	assert.Equal(t, "Aspirin", created.Data.Name)

	w = doJSON(t, r, http.MethodGet, "/api/v1/medicines/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateMedicineRejectsInvalid(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/medicines", gin.H{
		"name":     "Aspirin",
		"weekdays": []int{9},
		"hour":     8,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMedicineNotFound(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/medicines/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMedicineBadID(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodGet, "/api/v1/medicines/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMedicine(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/medicines", gin.H{
		"name":     "Aspirin",
		"weekdays": []int{1},
		"hour":     8,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodDelete, "/api/v1/medicines/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/medicines/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
