package chi

import dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"

// ErrorCode is a machine-readable error kind.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest      ErrorCode = "bad_request"
	ErrorCodeUnauthorized    ErrorCode = "unauthorized"
	ErrorCodeValidation      ErrorCode = "validation_failed"
	ErrorCodeNotFound        ErrorCode = "not_found"
	ErrorCodeProviderError   ErrorCode = "provider_error"
	ErrorCodeStorageError    ErrorCode = "storage_error"
	ErrorCodeInternalError   ErrorCode = "internal_error"
	ErrorCodeCorpusNotLoaded ErrorCode = "corpus_not_loaded"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Keywords []string `json:"keywords"`
}

// SearchResultItem is the ranked outcome of one keyword.
type SearchResultItem struct {
	ID         int64                      `json:"id"`
	Keyword    string                     `json:"keyword"`
	Candidates []dommatch.RankedCandidate `json:"candidates"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	CorpusEntries int               `json:"corpus_entries"`
}

func searchResultsToDTO(results []dommatch.Result) SearchResponse {
	items := make([]SearchResultItem, len(results))
	for i, r := range results {
		cands := r.Ranked
		if cands == nil {
			cands = []dommatch.RankedCandidate{}
		}
		items[i] = SearchResultItem{ID: r.QueryID(), Keyword: r.Query.Text, Candidates: cands}
	}
	return SearchResponse{Results: items}
}
