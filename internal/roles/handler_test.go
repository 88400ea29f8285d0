package roles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/roles"
	"github.com/shapeup-labs/shapeup/internal/shared"
)

type grantsFixture struct {
	router   http.Handler
	catalog  *rbac.Catalog
	registry *rbac.Registry
}

func newGrantsFixture(t *testing.T) *grantsFixture {
	t.Helper()
	catalog := rbac.NewCatalog(nil)
	registry := rbac.NewRegistry(catalog, nil)
	guard := rbac.Middleware{Engine: rbac.NewEngine(registry, nil)}
	handler := roles.NewHandler(nil, registry, guard, nil)

	r := chi.NewRouter()
	r.Route("/grants", handler.MountRoutes)
	return &grantsFixture{router: r, catalog: catalog, registry: registry}
}

func asSubject(sub *shared.Subject) func(*http.Request) *http.Request {
	return func(req *http.Request) *http.Request {
		sess := &shared.Session{}
		sess.SetSubject(sub)
		return req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
}

func (f *grantsFixture) do(t *testing.T, method, path, body string, sub *shared.Subject) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sub != nil {
		req = asSubject(sub)(req)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

var (
	adminSubject  = &shared.Subject{ID: "0", Username: "superadmin", Grants: []string{rbac.GrantAdministrator, rbac.GrantGuest}}
	memberSubject = &shared.Subject{ID: "1", Username: "alice", Grants: []string{rbac.GrantGuest}}
)

func TestListGrantsRequiresMembership(t *testing.T) {
	f := newGrantsFixture(t)

	res := f.do(t, http.MethodGet, "/grants/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = f.do(t, http.MethodGet, "/grants/", "", memberSubject)
	require.Equal(t, http.StatusOK, res.Code)

	var views []struct {
		ID          string            `json:"id"`
		Kind        string            `json:"kind"`
		Permissions []rbac.Permission `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &views))
	assert.Len(t, views, 9)
	assert.Equal(t, rbac.GrantAdministrator, views[0].ID)
	require.Len(t, views[0].Permissions, 1)
	assert.Equal(t, rbac.PermFullAdministration, views[0].Permissions[0].ID)
}

func TestCreateGrantRequiresAdministration(t *testing.T) {
	f := newGrantsFixture(t)

	res := f.do(t, http.MethodPost, "/grants/", `{"name":"Release Manager"}`, memberSubject)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = f.do(t, http.MethodPost, "/grants/", `{"name":"Release Manager","kind":"role"}`, adminSubject)
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body.String(), `"RELEASE_MANAGER"`)

	res = f.do(t, http.MethodPost, "/grants/", `{"name":"release manager"}`, adminSubject)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestUpdateReservedGrantRejected(t *testing.T) {
	f := newGrantsFixture(t)

	res := f.do(t, http.MethodPatch, "/grants/ADMINISTRATOR", `{"name":"Root"}`, adminSubject)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = f.do(t, http.MethodDelete, "/grants/GUEST", "", adminSubject)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

func TestSetPermissionsEndpoint(t *testing.T) {
	f := newGrantsFixture(t)
	ctx := context.Background()

	perm, err := f.catalog.Add(ctx, "Deploy", "")
	require.NoError(t, err)
	grant, err := f.registry.Create(ctx, "Operators", "", rbac.GrantKindRole)
	require.NoError(t, err)

	res := f.do(t, http.MethodPut, "/grants/"+grant.ID+"/permissions",
		`{"permission_ids":["`+perm.ID+`","GHOST"]}`, adminSubject)
	require.Equal(t, http.StatusOK, res.Code)

	var view struct {
		PermissionIDs []string `json:"permission_ids"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &view))
	assert.Equal(t, []string{perm.ID}, view.PermissionIDs)
}

func TestAssignAndRemovePermissionEndpoints(t *testing.T) {
	f := newGrantsFixture(t)
	ctx := context.Background()

	perm, err := f.catalog.Add(ctx, "Deploy", "")
	require.NoError(t, err)
	grant, err := f.registry.Create(ctx, "Operators", "", rbac.GrantKindRole)
	require.NoError(t, err)

	res := f.do(t, http.MethodPost, "/grants/"+grant.ID+"/permissions/"+perm.ID, "", adminSubject)
	require.Equal(t, http.StatusOK, res.Code)

	// Assigning twice is a conflict.
	res = f.do(t, http.MethodPost, "/grants/"+grant.ID+"/permissions/"+perm.ID, "", adminSubject)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = f.do(t, http.MethodDelete, "/grants/"+grant.ID+"/permissions/"+perm.ID, "", adminSubject)
	require.Equal(t, http.StatusOK, res.Code)

	res = f.do(t, http.MethodDelete, "/grants/"+grant.ID+"/permissions/"+perm.ID, "", adminSubject)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestGetGrantNotFound(t *testing.T) {
	f := newGrantsFixture(t)
	res := f.do(t, http.MethodGet, "/grants/MISSING", "", memberSubject)
	assert.Equal(t, http.StatusNotFound, res.Code)
}
