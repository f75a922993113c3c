package domain

import (
	"strings"
	"time"
)

// Collection is the watch line a product belongs to
type Collection string

const (
	CollectionSignature Collection = "Signature"
	CollectionLimited   Collection = "Limited"
	CollectionClassic   Collection = "Classic"
)

// Collections lists every valid collection in display order
var Collections = []Collection{CollectionSignature, CollectionLimited, CollectionClassic}

// Valid reports whether c is a known collection
func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Badge is the optional marketing label shown on a product card
type Badge string

const (
	BadgeBestSeller Badge = "BEST SELLER"
	BadgeLimited    Badge = "LIMITED"
	BadgeNew        Badge = "NEW"
)

func (b Badge) Valid() bool {
	switch b {
	case BadgeBestSeller, BadgeLimited, BadgeNew:
		return true
	}
	return false
}

// Status is the publication state of a product
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// DefaultCurrency is applied when a product is saved without a currency
const DefaultCurrency = "Kz"

// Product represents a watch in the catalog
//
// swagger:model
type Product struct {
	// The ID of the product
	//
	// required: true
	// example: 5b1f3c0e-6c1a-4f0e-9d43-2f3f1d6c8a10
	ID string `json:"id"`

	// The name of the product
	//
	// required: true
	// example: Eveul Jupiter
	Name string `json:"name"`

	// URL-safe unique identifier derived from the name
	//
	// required: true
	// example: eveul-jupiter
	Slug string `json:"slug"`

	// required: true
	// example: Signature
	Collection Collection `json:"collection"`

	// Price in the smallest currency unit
	//
	// required: true
	// min: 0
	// example: 189000
	Price int64 `json:"price"`

	// example: Kz
	Currency string `json:"currency"`

	// Optional marketing badge, null when absent
	//
	// example: NEW
	Badge *Badge `json:"badge"`

	// required: true
	// example: active
	Status Status `json:"status"`

	// Optional long description, null when absent
	Description *string `json:"description"`

	// Short selling points in display order
	Highlights []string `json:"highlights"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so stores never share mutable state with callers
func (p *Product) Clone() *Product {
	c := *p
	if p.Badge != nil {
		b := *p.Badge
		c.Badge = &b
	}
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	c.Highlights = append([]string{}, p.Highlights...)
	return &c
}

// ProductInput holds the mutable fields of a product for create and full-replace edits
//
// swagger:model
type ProductInput struct {
	// required: true
	// max length: 200
	Name string `json:"name" validate:"required,max=200"`

	// Leave empty to derive the slug from the name
	Slug string `json:"slug" validate:"omitempty,max=200"`

	Collection Collection `json:"collection" validate:"omitempty,collection"`

	// min: 0
	Price int64 `json:"price" validate:"min=0"`

	Currency string `json:"currency" validate:"omitempty,max=8"`

	Badge *Badge `json:"badge" validate:"omitempty,badge"`

	Status Status `json:"status" validate:"omitempty,status"`

	Description *string `json:"description" validate:"omitempty,max=10000"`

	Highlights []string `json:"highlights" validate:"max=20,dive,max=120"`
}

// Normalize trims the name and turns blank optional fields into absent ones
func (in *ProductInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.Badge != nil && strings.TrimSpace(string(*in.Badge)) == "" {
		in.Badge = nil
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		in.Description = nil
	}
}
