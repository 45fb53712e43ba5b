package dto

// SearchQuery is shared by the three search endpoints.
type SearchQuery struct {
	Query string `query:"q"`
	Limit int    `query:"limit"`
}

// SearchResult wraps cached search payloads so the handler can flag cache hits.
type SearchResult[T any] struct {
	Items    []T
	CacheHit bool
}
