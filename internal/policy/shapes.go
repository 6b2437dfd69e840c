package policy

import "github.com/straye-as/crm-api/internal/domain"

// Shape is a response view variant
type Shape string

const (
	// ShapeList is the compact row used in collections
	ShapeList Shape = "list"
	// ShapeDetail is the full record with timestamps and relations
	ShapeDetail Shape = "detail"
	// ShapeContact hides ownership, for staff who only coordinate with the record
	ShapeContact Shape = "contact"
)

// ShapeFor selects the response shape for role performing op on entity.
// Operations without an explicit entry return the detail shape.
func ShapeFor(role domain.Role, entity Entity, op Operation) Shape {
	ep, ok := entityPolicy(role, entity)
	if !ok {
		return ShapeContact
	}
	if shape, ok := ep.Shapes[op]; ok {
		return shape
	}
	return ShapeDetail
}
