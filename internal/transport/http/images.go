package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/imageset"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

// multipartMemory is how much of an upload is held in memory before the
// rest spills to a temporary file
const multipartMemory = 128 * 1024

// ImageManager is the part of *imageset.Manager the handlers use
type ImageManager interface {
	Add(ctx context.Context, in imageset.AddImageInput) (*domain.ProductImage, error)
	Promote(ctx context.Context, productID, imageID string) ([]*domain.ProductImage, error)
	Remove(ctx context.Context, imageID string) (*imageset.RemoveResult, error)
	Reconcile(ctx context.Context, productID string) ([]*domain.ProductImage, error)
	List(ctx context.Context, productID string) ([]*domain.ProductImage, error)
}

type ImageHandler struct {
	manager        ImageManager
	maxUploadBytes int64
	logger         hclog.Logger
}

func NewImageHandler(m ImageManager, maxUploadBytes int64, log hclog.Logger) *ImageHandler {
	return &ImageHandler{manager: m, maxUploadBytes: maxUploadBytes, logger: log}
}

// ListImages handles GET /admin/products/{id}/images
//
// swagger:route GET /admin/products/{id}/images images listImages
//
// Returns the images of a product, primary first.
//
// Responses:
//
//	200: imagesResponse
//	404: errorResponse
//	500: errorResponse
func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.manager.List(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, images)
}

// Upload handles POST /admin/products/{id}/images
//
// swagger:route POST /admin/products/{id}/images images uploadImage
//
// Stores an image and appends it to the end of the product's image set.
//
// Consumes:
// - multipart/form-data
//
// Responses:
//
//	201: imageResponse
//	400: errorResponse
//	404: errorResponse
//	409: errorResponse
//	502: errorResponse
//	500: errorResponse
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "http.Upload"
	productID := mux.Vars(r)["id"]

	if h.maxUploadBytes > 0 {
		// room for the multipart envelope around the file
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Debug("Unable to parse multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, domain.E(domain.InvalidInput, op, "image is too large", err))
			return
		}
		writeError(w, h.logger, domain.E(domain.InvalidInput, op, "unable to parse form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Retrieve the file
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.logger.Debug("Unable to get file from form data", "error", err)
		writeError(w, h.logger, domain.E(domain.InvalidInput, op, "a file is required", err))
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		writeError(w, h.logger, domain.E(domain.InvalidInput, op, "image is too large", nil))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if sniffed, err := getContentType(file); err == nil {
			contentType = sniffed
		}
	}

	h.logger.Info("Handle POST (multipart)", "product_id", productID, "filename", fileHeader.Filename, "size", fileHeader.Size)

	image, err := h.manager.Add(r.Context(), imageset.AddImageInput{
		ProductID:   productID,
		Data:        file,
		Size:        fileHeader.Size,
		ContentType: contentType,
		Filename:    fileHeader.Filename,
		SlugHint:    r.FormValue("slug"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, image)
}

// Reconcile handles POST /admin/products/{id}/images/reconcile
//
// swagger:route POST /admin/products/{id}/images/reconcile images reconcileImages
//
// Repairs gaps and duplicates in the image order of a product.
//
// Responses:
//
//	200: imagesResponse
//	404: errorResponse
//	500: errorResponse
func (h *ImageHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	images, err := h.manager.Reconcile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, images)
}

// ImagePatch is the body of PATCH /admin/images/{imageId}
//
// swagger:model
type ImagePatch struct {
	// must be true, promotion is the only supported change
	MakePrimary bool `json:"makePrimary"`
	// product the image belongs to
	//
	// required: true
	ProductID string `json:"productId"`
}

// ImagesResponse wraps an ordered image set
//
// swagger:model
type ImagesResponse struct {
	Images []*domain.ProductImage `json:"images"`
}

// Patch handles PATCH /admin/images/{imageId}
//
// swagger:route PATCH /admin/images/{imageId} images promoteImage
//
// Moves an image to position 0, making it the primary image.
//
// Responses:
//
//	200: imageSetResponse
//	400: errorResponse
//	404: errorResponse
//	500: errorResponse
func (h *ImageHandler) Patch(w http.ResponseWriter, r *http.Request) {
	const op = "http.Patch"

	var req ImagePatch
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.logger, domain.E(domain.InvalidInput, op, "invalid image data", err))
		return
	}
	if !req.MakePrimary {
		writeError(w, h.logger, domain.E(domain.InvalidInput, op, "nothing to update", nil))
		return
	}

	images, err := h.manager.Promote(r.Context(), req.ProductID, mux.Vars(r)["imageId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ImagesResponse{Images: images})
}

// Delete handles DELETE /admin/images/{imageId}
//
// swagger:route DELETE /admin/images/{imageId} images removeImage
//
// Deletes an image and its blob and closes the gap it leaves.
//
// Responses:
//
//	200: removeResponse
//	404: errorResponse
//	502: errorResponse
//	500: errorResponse
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.manager.Remove(r.Context(), mux.Vars(r)["imageId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, res)
}

// getContentType determines the MIME type of the file based on its content
func getContentType(file io.ReadSeeker) (string, error) {
	// Read a portion of the file to detect the content type
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}

	// Reset the file pointer to the beginning
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buf[:n]), nil
}
