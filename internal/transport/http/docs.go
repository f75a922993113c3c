// Package classification of Eveul storefront API
//
// # Documentation for the Eveul storefront API
//
// Public catalog of Eveul watches and the admin endpoints that manage
// products and their image sets.
//
// Schemes: http
// BasePath: /
// Version: 1.0.0
//
// Consumes:
// - application/json
//
// Produces:
// - application/json
//
// swagger:meta
package http

import (
	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/imageset"
	"github.com/eveul/storefront/internal/service"
)

// NOTE: Types defined here are purely for documentation purposes
// These types are not used by any of the handlers

// Error with its kind
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in: body
	Body ErrorResponse
}

// Active watches for the catalog
// swagger:response catalogResponse
type catalogResponseWrapper struct {
	// in: body
	Body []service.CatalogCard
}

// Everything the product page shows
// swagger:response productPageResponse
type productPageResponseWrapper struct {
	// in: body
	Body service.ProductPage
}

// All products
// swagger:response productsResponse
type productsResponseWrapper struct {
	// in: body
	Body []domain.Product
}

// A single product
// swagger:response productResponse
type productResponseWrapper struct {
	// in: body
	Body domain.Product
}

// A product with its images
// swagger:response productDetailResponse
type productDetailResponseWrapper struct {
	// in: body
	Body service.ProductDetail
}

// A single image
// swagger:response imageResponse
type imageResponseWrapper struct {
	// in: body
	Body domain.ProductImage
}

// Images of a product, primary first
// swagger:response imagesResponse
type imagesResponseWrapper struct {
	// in: body
	Body []domain.ProductImage
}

// Images of a product after a promotion
// swagger:response imageSetResponse
type imageSetResponseWrapper struct {
	// in: body
	Body ImagesResponse
}

// Images left after a removal and the new primary
// swagger:response removeResponse
type removeResponseWrapper struct {
	// in: body
	Body imageset.RemoveResult
}

// Outcome of a newsletter sign-up
// swagger:response subscribeResponse
type subscribeResponseWrapper struct {
	// in: body
	Body service.SubscribeResult
}

// swagger:response keepaliveResponse
type keepaliveResponseWrapper struct {
	// in: body
	Body KeepaliveResponse
}

// swagger:parameters getProduct updateProduct setProductStatus publishProduct unpublishProduct archiveProduct listImages uploadImage reconcileImages
type productIDParamsWrapper struct {
	// The ID of the product
	// in: path
	// required: true
	ID string `json:"id"`
}

// swagger:parameters promoteImage removeImage
type imageIDParamsWrapper struct {
	// The ID of the image
	// in: path
	// required: true
	ImageID string `json:"imageId"`
}

// swagger:parameters getWatch
type slugParamsWrapper struct {
	// in: path
	// required: true
	Slug string `json:"slug"`
}

// swagger:parameters listWatches
type collectionParamsWrapper struct {
	// Signature, Limited or Classic
	// in: query
	Collection string `json:"collection"`
}

// swagger:parameters createProduct updateProduct
type productBodyParamsWrapper struct {
	// in: body
	// required: true
	Body domain.ProductInput
}

// swagger:parameters setProductStatus
type statusBodyParamsWrapper struct {
	// in: body
	// required: true
	Body StatusRequest
}

// swagger:parameters promoteImage
type imagePatchParamsWrapper struct {
	// in: body
	// required: true
	Body ImagePatch
}

// swagger:parameters uploadImage
type uploadParamsWrapper struct {
	// The image
	// in: formData
	// required: true
	// swagger:file
	File interface{} `json:"file"`
	// Directory hint, usually the product slug
	// in: formData
	Slug string `json:"slug"`
}

// swagger:parameters subscribe
type newsletterBodyParamsWrapper struct {
	// in: body
	// required: true
	Body NewsletterRequest
}

// swagger:parameters keepalive
type keepaliveParamsWrapper struct {
	// in: query
	Token string `json:"token"`
}

// ErrorResponse defines the structure for API error responses
//
// swagger:model
type ErrorResponse struct {
	// not_found, mismatch, invalid_input, conflict, storage_failure,
	// persistence_failure or unexpected
	//
	// required: true
	Kind string `json:"kind"`
	// The error message
	//
	// required: true
	Message string `json:"message"`
	// Field level validation messages
	Messages []string `json:"messages,omitempty"`
}
