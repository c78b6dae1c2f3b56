// The [hura] package is a Go client for the Hura cultural heritage API.
//
// # Getting started
//
// Build a [Client] from a [Config] carrying your API endpoint and key, then
// reach the entity namespaces through it:
//
//	client, err := hura.New(hura.Config{APIURL: "https://api.example.org", APIKey: key})
//	record, err := client.Records().Find(ctx, 12345, nil)
//
// # Searching
//
// [Client.NewSearch] turns nested filter options, typically the decoded
// query string of an incoming request, into a lazy search. Nothing is sent
// until the first call to Results, Total or Facets, and the response is then
// held for the life of the search:
//
//	s := client.NewSearch(map[string]any{"i": map[string]any{"category": "Images"}, "text": "kea"})
//	page, err := s.Results(ctx)
//
// Callers with their own record type use the package-level [NewSearch] with a
// factory instead.
//
// # Filters
//
// Search state round-trips through four nested URL buckets: i (item filters),
// h (heading filters), and their il/hl locked variants which survive
// user-driven filter changes. The [github.com/openhura/hura.go/pkg/filters]
// package owns that contract.
//
// # Errors
//
// Read operations return typed errors wrapping the sentinels in
// [github.com/openhura/hura.go/pkg/constants]. Write operations on entities
// return a boolean and keep the failure message on the entity's Errors field.
// Searches degrade to empty results on most failures; only service outage and
// timeout surface as errors.
package hura
