package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/syncink-attendance/internal/models"
)

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "valid", body: `{"email":"a@b.c","password":"x"}`, ok: true},
		{name: "empty", body: ``, ok: false},
		{name: "malformed", body: `{"email":`, ok: false},
		{name: "unknown field", body: `{"email":"a@b.c","identifier":"x"}`, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tc.body))
			assert.Equal(t, tc.ok, decodeJSON(rec, req, &dst))
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestScopeUser(t *testing.T) {
	employee := models.User{ID: "e1", Role: models.RoleEmployee}
	manager := models.User{ID: "m1", Role: models.RoleManager}

	id, ok := scopeUser(httptest.NewRecorder(), employee, "")
	assert.True(t, ok)
	assert.Equal(t, "e1", id)

	id, ok = scopeUser(httptest.NewRecorder(), employee, "e1")
	assert.True(t, ok)
	assert.Equal(t, "e1", id)

	rec := httptest.NewRecorder()
	_, ok = scopeUser(rec, employee, "e2")
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	id, ok = scopeUser(httptest.NewRecorder(), manager, "e2")
	assert.True(t, ok)
	assert.Equal(t, "e2", id)

	id, ok = scopeUser(httptest.NewRecorder(), manager, "")
	assert.True(t, ok)
	assert.Empty(t, id)
}
