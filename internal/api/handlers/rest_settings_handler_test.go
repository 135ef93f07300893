package handlers_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/api/handlers"
	"omnichannel/inquiries/internal/models"
)

func setupSettingsRouter(settings *MockSettingsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestSettingsHandler(settings, zap.NewNop())
	r := gin.New()
	r.GET("/v1/settings/public", handler.GetPublicSettings)
	r.PUT("/v1/admin/settings/:key", handler.SetSetting)
	return r
}

func putSetting(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPut, "/v1/admin/settings/"+key, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRestSettingsHandler_GetPublicSettings(t *testing.T) {
	settings := new(MockSettingsService)
	settings.On("GetAllPublic", mock.Anything).Return(map[string]interface{}{"Livechat_enabled": true}, nil)
	r := setupSettingsRouter(settings)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/settings/public", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"Livechat_enabled":true}`, w.Body.String())
	settings.AssertExpectations(t)
}

func TestRestSettingsHandler_GetPublicSettings_Error(t *testing.T) {
	settings := new(MockSettingsService)
	settings.On("GetAllPublic", mock.Anything).Return(nil, errors.New("db unavailable"))
	r := setupSettingsRouter(settings)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/settings/public", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	settings.AssertExpectations(t)
}

func TestRestSettingsHandler_SetSetting_NormalisesSortMechanism(t *testing.T) {
	settings := new(MockSettingsService)
	settings.On("SetValue", mock.Anything, models.SettingSortMechanism, "Priority", true).Return(nil)
	r := setupSettingsRouter(settings)

	w := putSetting(r, models.SettingSortMechanism, `{"value":"priority","public":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":"Priority"`)
	settings.AssertExpectations(t)
}

func TestRestSettingsHandler_SetSetting_RejectsUnknownSortMechanism(t *testing.T) {
	settings := new(MockSettingsService)
	r := setupSettingsRouter(settings)

	for _, body := range []string{`{"value":"Random"}`, `{"value":3}`} {
		w := putSetting(r, models.SettingSortMechanism, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	settings.AssertNotCalled(t, "SetValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestSettingsHandler_SetSetting_RequiresValue(t *testing.T) {
	settings := new(MockSettingsService)
	r := setupSettingsRouter(settings)

	w := putSetting(r, models.SettingDispatchDepartments, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	settings.AssertNotCalled(t, "SetValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestSettingsHandler_SetSetting_OtherKeysPassThrough(t *testing.T) {
	settings := new(MockSettingsService)
	settings.On("SetValue", mock.Anything, models.SettingDispatchDepartments, []interface{}{"sales"}, false).Return(nil)
	r := setupSettingsRouter(settings)

	w := putSetting(r, models.SettingDispatchDepartments, `{"value":["sales"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	settings.AssertExpectations(t)
}
