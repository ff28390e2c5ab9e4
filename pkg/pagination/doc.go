// Package pagination computes the page parameters of sequential paginated
// requests.
//
// A State describes how many objects the caller wants (Limit), how many the
// provider returns per call at most (MaxPerRequest) and where the next
// request starts (Offset). In page mode the offset is rounded down to a page
// boundary before the page number is derived:
//
//	p, _ := pagination.New(pagination.State{Limit: 100, MaxPerRequest: 40, Offset: 45})
//	p.Page()              // 2
//	p.ResultsPerRequest() // 40
//	p.Apply(&params)      // page=2&per_page=40
//
// Offset mode leaves the parameter naming to the caller through
// Paginator.OffsetParams, since providers disagree on it.
//
// Pages are fetched one after the other; there is no parallel fan-out.
package pagination
