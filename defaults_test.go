package ouroboros_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	ouroboros "github.com/i5heu/ouroboros-vault"
	"github.com/i5heu/ouroboros-vault/apiServer"
	"github.com/i5heu/ouroboros-vault/internal/config"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func serve(t *testing.T, handler http.Handler, method, target, apiKey string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if apiKey != "" {
		req.Header.Set("ApiKey", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// The default configuration without a config file or secrets file serves the
// img vault and rejects unknown keys with 403.
func TestDefaultConfigServesImageVault(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.RootPath = filepath.Join(dir, "media")
	cfg.SecretsPath = filepath.Join(dir, ".secrets", "manager.json")

	ouConfig, err := cfg.Ouroboros(quietLogger())
	require.NoError(t, err)
	ou, err := ouroboros.New(ouConfig)
	require.NoError(t, err)
	require.NoError(t, ou.Start(ctx))
	t.Cleanup(func() { _ = ou.Close(context.Background()) })

	db, err := ou.DB()
	require.NoError(t, err)
	assert.True(t, db.HasVault(types.NewEntryKey("img", types.Image)))

	keySet, err := ou.KeySet()
	require.NoError(t, err)
	server := apiServer.New(db, apiServer.WithLogger(quietLogger()), apiServer.WithKeySet(keySet))

	body, err := json.Marshal(types.UploadDto{Bytes: []int{1, 2, 3}, Extension: ".png"})
	require.NoError(t, err)

	rec := serve(t, server, http.MethodPost, "/manage/img/test", "wrong", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusNotFound, serve(t, server, http.MethodGet, "/img/test", "", nil).Code)

	keys, err := ou.Keys()
	require.NoError(t, err)
	require.NoError(t, keys.Add("stored"))

	rec = serve(t, server, http.MethodPost, "/manage/img/test", "stored", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, server, http.MethodGet, "/img/test", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto types.MediaBinaryDto
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, "image/png", dto.Mime)
	assert.Equal(t, 3, dto.Size)
}
