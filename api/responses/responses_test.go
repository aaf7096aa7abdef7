package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]int{"received": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"received":3}}`, rec.Body.String())
}

func TestWriteErrorUsesTypedMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec,
		pkgerrors.New(pkgerrors.CodeConfig, "empty marketplace credentials"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "CONFIGURATION_ERROR", envelope.Error.Code)
	assert.Equal(t, "empty marketplace credentials", envelope.Error.Message)
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec,
		pkgerrors.New(pkgerrors.CodeInternal, "database password leaked into message"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "internal server error", envelope.Error.Message)
}

func TestWriteErrorSurfacesUpstreamStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec,
		pkgerrors.New(pkgerrors.CodeUpstream, "Pedido não encontrado").
			WithUpstream(http.StatusNotFound, `{"message":"Pedido não encontrado"}`))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "Pedido não encontrado", envelope.Error.Message)
	assert.Equal(t, http.StatusNotFound, envelope.Error.UpstreamStatus)
}

func TestWriteErrorWrapsUntypedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
}
