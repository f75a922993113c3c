package events

import "github.com/eveul/storefront/internal/domain"

type ProductCreated struct {
	ProductID string `json:"product_id"`
	Slug      string `json:"slug"`
}

type ProductUpdated struct {
	ProductID string `json:"product_id"`
	Slug      string `json:"slug"`
}

type ProductStatusChanged struct {
	ProductID string        `json:"product_id"`
	Status    domain.Status `json:"status"`
}

type ImageAdded struct {
	ProductID string `json:"product_id"`
	ImageID   string `json:"image_id"`
	SortOrder int    `json:"sort_order"`
}

type PrimaryImageChanged struct {
	ProductID string `json:"product_id"`
	ImageID   string `json:"image_id"`
}

// ImageRemoved carries the new primary, empty when the product has no images left
type ImageRemoved struct {
	ProductID string `json:"product_id"`
	ImageID   string `json:"image_id"`
	PrimaryID string `json:"primary_id,omitempty"`
}

// Name returns the wire name of a catalog event, false for anything else
func Name(event any) (string, bool) {
	switch event.(type) {
	case ProductCreated:
		return "product_created", true
	case ProductUpdated:
		return "product_updated", true
	case ProductStatusChanged:
		return "product_status_changed", true
	case ImageAdded:
		return "image_added", true
	case PrimaryImageChanged:
		return "primary_image_changed", true
	case ImageRemoved:
		return "image_removed", true
	}
	return "", false
}
