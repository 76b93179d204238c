package swap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"swapdeck/internal/aggregator"
)

func setupRouter(upstream *MockAggregator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(NewService(upstream))
	v1 := router.Group("/api/v1")
	handler.RegisterRoutes(v1)
	return router
}

func TestGetQuoteEndpoint(t *testing.T) {
	upstream := new(MockAggregator)
	upstream.On("GetQuote", mock.Anything, mock.AnythingOfType("*aggregator.QuoteRequest")).
		Return(&aggregator.QuoteResponse{DstAmount: decimal.NewFromInt(995)}, nil)
	router := setupRouter(upstream)

	body := `{"chain_id":1,"src":"0xaaa","dst":"0xbbb","amount":"1000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp aggregator.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.DstAmount.Equal(decimal.NewFromInt(995)))
}

func TestGetQuoteEndpointValidationIs400(t *testing.T) {
	router := setupRouter(new(MockAggregator))

	body := `{"chain_id":1,"src":"0xaaa","dst":"0xaaa","amount":"1000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot swap same token")
}

func TestGetQuoteEndpointUpstreamFailureIs502(t *testing.T) {
	upstream := new(MockAggregator)
	upstream.On("GetQuote", mock.Anything, mock.AnythingOfType("*aggregator.QuoteRequest")).
		Return(nil, assert.AnError)
	router := setupRouter(upstream)

	body := `{"chain_id":1,"src":"0xaaa","dst":"0xbbb","amount":"1000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListTokensEndpoint(t *testing.T) {
	upstream := new(MockAggregator)
	upstream.On("GetTokens", mock.Anything, 137).Return([]aggregator.TokenInfo{
		{Symbol: "WMATIC", Address: "0xwmatic"},
	}, nil)
	router := setupRouter(upstream)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/swap/tokens?chainId=137", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "WMATIC")
}

func TestListTokensEndpointBadChainID(t *testing.T) {
	router := setupRouter(new(MockAggregator))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/swap/tokens?chainId=banana", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
