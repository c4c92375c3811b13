package model

// ResourceKind selects which availability representation a resource uses.
type ResourceKind string

const (
	// KindGardener resources declare a recurring weekly pattern.
	KindGardener ResourceKind = "gardener"
	// KindGarden resources declare literal one-shot windows.
	KindGarden ResourceKind = "garden"
)

// Resource is the bookable entity: a gardener's service profile or a garden
// listing. The engine treats it as opaque beyond ownership and listing state.
type Resource struct {
	ID      string
	OwnerID string
	Kind    ResourceKind
	Listed  bool
}
