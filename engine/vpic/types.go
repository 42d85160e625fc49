// Package vpic is a client for the NHTSA vPIC vehicle API, the primary and
// secondary data sources of the decode pipeline.
package vpic

// Response is the common vPIC envelope returned by every endpoint.
type Response struct {
	Count          int                 `json:"Count"`
	Message        string              `json:"Message"`
	SearchCriteria string              `json:"SearchCriteria"`
	Results        []map[string]string `json:"-"`
}

// First returns the first result row, or nil when the response is empty.
func (r *Response) First() map[string]string {
	if r == nil || len(r.Results) == 0 {
		return nil
	}
	return r.Results[0]
}

// Field returns a named field from the first result row.
func (r *Response) Field(name string) string {
	if row := r.First(); row != nil {
		return row[name]
	}
	return ""
}
