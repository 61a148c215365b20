package testutil

// FixedIDGenerator generates the same request id every time.
//
// This keeps response headers and access-log fields stable across test runs
// and golden comparisons.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed request id generator.
//
// If id is empty, Generate() returns "test-request-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-request-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements api.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
