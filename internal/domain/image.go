package domain

import "time"

// ProductImage is one entry of a product's ordered image set.
// The image with SortOrder 0 is the product's primary image.
//
// swagger:model
type ProductImage struct {
	// required: true
	ID string `json:"id"`

	// required: true
	ProductID string `json:"product_id"`

	// Public URL resolved from Path
	//
	// required: true
	URL string `json:"url"`

	// Key of the object in the blob store, {slug}/{filename}
	//
	// required: true
	Path string `json:"path"`

	// Zero-based position within the product's image set
	//
	// required: true
	// min: 0
	SortOrder int `json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the image
func (i *ProductImage) Clone() *ProductImage {
	c := *i
	return &c
}

// Primary reports whether the image is the product's representative image
func (i *ProductImage) Primary() bool {
	return i.SortOrder == 0
}
