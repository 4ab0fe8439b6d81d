package graph

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/feldgrau/accountd/internal/pkg/httputil"
)

// Handler serves the GraphQL endpoint.
type Handler struct {
	schema graphql.Schema
}

// NewHandler creates the endpoint handler.
func NewHandler(schema graphql.Schema) *Handler {
	return &Handler{schema: schema}
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ServeHTTP executes one GraphQL request. Resolver failures are reported
// inside the GraphQL response envelope, not via HTTP status codes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Query == "" {
		httputil.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})

	httputil.JSON(w, http.StatusOK, result)
}
