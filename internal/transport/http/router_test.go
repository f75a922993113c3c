package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/eveul/storefront/internal/cache"
	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/events"
	"github.com/eveul/storefront/internal/imageset"
	"github.com/eveul/storefront/internal/repository"
	"github.com/eveul/storefront/internal/service"
	"github.com/eveul/storefront/internal/storage"
	websocketTransport "github.com/eveul/storefront/internal/transport/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a 1x1 PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

const keepaliveToken = "s3cret"

type testAPI struct {
	srv *httptest.Server
	ps  service.ProductService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := hclog.NewNullLogger()
	validator := domain.NewValidation()
	bus := events.NewEventBus[any]()

	products := repository.NewMemoryProductRepository()
	images := repository.NewMemoryImageRepository()

	srv := httptest.NewUnstartedServer(nil)
	store, err := storage.NewLocal(t.TempDir(), 1<<20, "http://"+srv.Listener.Addr().String()+"/images")
	require.NoError(t, err)

	ps := service.NewProductService(products, images, cache.NewMemory(), time.Minute, validator, bus, logger)
	ns := service.NewNewsletterService(repository.NewMemorySubscriberRepository(), validator, logger)
	manager := imageset.NewManager(images, products, store, bus, logger)

	srv.Config.Handler = NewRouter(Handlers{
		Products:  NewProductHandler(ps, logger),
		Images:    NewImageHandler(manager, 1<<20, logger),
		Site:      NewSiteHandler(ns, ps, keepaliveToken, logger),
		Files:     NewFileHandler(logger, store),
		WebSocket: websocketTransport.NewHandler(logger, bus, []string{"*"}),
	}, validator, logger, nil)
	srv.Start()

	t.Cleanup(func() {
		srv.Close()
		ps.Close()
		bus.Close()
	})
	return &testAPI{srv: srv, ps: ps}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, r)
	require.NoError(t, err)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) upload(t *testing.T, productID, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("slug", "eveul-jupiter"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(a.srv.URL+"/admin/products/"+productID+"/images", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testAPI) createProduct(t *testing.T, name string) *domain.Product {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/admin/products", map[string]any{
		"name":       name,
		"collection": "Signature",
		"price":      450000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[*domain.Product](t, resp)
}

func (a *testAPI) addImage(t *testing.T, productID string) *domain.ProductImage {
	t.Helper()
	resp := a.upload(t, productID, "wrist.png", "image/png", pngPixel)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[*domain.ProductImage](t, resp)
}

func TestCreateProduct(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/admin/products", map[string]any{
		"name":       "  Eveul Júpiter ",
		"price":      450000,
		"badge":      "",
		"highlights": []string{"Safira", " ", "Aço 316L"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	p := decode[*domain.Product](t, resp)
	assert.Equal(t, "Eveul Júpiter", p.Name)
	assert.Equal(t, "eveul-jupiter", p.Slug)
	assert.Equal(t, domain.StatusDraft, p.Status)
	assert.Equal(t, domain.CollectionSignature, p.Collection)
	assert.Nil(t, p.Badge)
	assert.Equal(t, []string{"Safira", "Aço 316L"}, p.Highlights)
}

func TestCreateProductErrors(t *testing.T) {
	api := newTestAPI(t)
	api.createProduct(t, "Eveul Júpiter")

	tt := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest, "invalid_input"},
		{"missing name", map[string]any{"price": 10}, http.StatusUnprocessableEntity, "invalid_input"},
		{"negative price", map[string]any{"name": "X", "price": -1}, http.StatusUnprocessableEntity, "invalid_input"},
		{"unknown collection", map[string]any{"name": "X", "collection": "Sport"}, http.StatusUnprocessableEntity, "invalid_input"},
		{"duplicate slug", map[string]any{"name": "Eveul Jupiter"}, http.StatusConflict, "conflict"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			resp := api.do(t, http.MethodPost, "/admin/products", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)

			e := decode[ErrorResponse](t, resp)
			assert.Equal(t, tc.kind, e.Kind)
			assert.NotEmpty(t, e.Message)
			if tc.status == http.StatusUnprocessableEntity {
				assert.NotEmpty(t, e.Messages)
			}
		})
	}
}

func TestUpdateAndStatusTransitions(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, "Eveul Marte")

	resp := api.do(t, http.MethodPut, "/admin/products/"+p.ID, map[string]any{
		"name":  "Eveul Marte II",
		"price": 500000,
		"badge": "NEW",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[*domain.Product](t, resp)
	assert.Equal(t, "eveul-marte-ii", updated.Slug)
	require.NotNil(t, updated.Badge)
	assert.Equal(t, domain.BadgeNew, *updated.Badge)

	resp = api.do(t, http.MethodPost, "/admin/products/"+p.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusActive, decode[*domain.Product](t, resp).Status)

	resp = api.do(t, http.MethodPatch, "/admin/products/"+p.ID+"/status", map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusArchived, decode[*domain.Product](t, resp).Status)

	resp = api.do(t, http.MethodPatch, "/admin/products/"+p.ID+"/status", map[string]any{"status": "sold"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/admin/products/unknown/unpublish", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, resp).Kind)
}

func TestCatalogAndProductPage(t *testing.T) {
	api := newTestAPI(t)
	jupiter := api.createProduct(t, "Eveul Júpiter")
	saturno := api.createProduct(t, "Eveul Saturno")
	api.createProduct(t, "Eveul Draft")
	img := api.addImage(t, jupiter.ID)

	for _, p := range []*domain.Product{jupiter, saturno} {
		resp := api.do(t, http.MethodPost, "/admin/products/"+p.ID+"/publish", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := api.do(t, http.MethodGet, "/watches", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cards := decode[[]service.CatalogCard](t, resp)
	require.Len(t, cards, 2)
	assert.Equal(t, saturno.ID, cards[0].ID)
	assert.Nil(t, cards[0].Image)
	require.NotNil(t, cards[1].Image)
	assert.Equal(t, img.URL, *cards[1].Image)

	resp = api.do(t, http.MethodGet, "/watches?collection=Limited", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]service.CatalogCard](t, resp))

	resp = api.do(t, http.MethodGet, "/watches?collection=Sport", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/watches/eveul-jupiter", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[service.ProductPage](t, resp)
	assert.Equal(t, jupiter.ID, page.Product.ID)
	require.Len(t, page.Images, 1)
	require.Len(t, page.Related, 1)
	assert.Equal(t, saturno.ID, page.Related[0].ID)

	resp = api.do(t, http.MethodGet, "/watches/eveul-draft", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImageLifecycle(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, "Eveul Júpiter")

	a := api.addImage(t, p.ID)
	b := api.addImage(t, p.ID)
	c := api.addImage(t, p.ID)
	assert.Equal(t, []int{0, 1, 2}, []int{a.SortOrder, b.SortOrder, c.SortOrder})
	assert.True(t, strings.HasPrefix(a.Path, "eveul-jupiter/"))
	assert.True(t, strings.HasSuffix(a.Path, ".png"))

	// the stored blob is served back
	resp, err := http.Get(a.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngPixel, data)

	// promote c
	resp = api.do(t, http.MethodPatch, "/admin/images/"+c.ID, map[string]any{"makePrimary": true, "productId": p.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	set := decode[ImagesResponse](t, resp)
	require.Len(t, set.Images, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, ids(set.Images))
	assert.Equal(t, []int{0, 1, 2}, orders(set.Images))

	// remove the primary
	resp = api.do(t, http.MethodDelete, "/admin/images/"+c.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	removed := decode[imageset.RemoveResult](t, resp)
	assert.Equal(t, []string{a.ID, b.ID}, ids(removed.Images))
	require.NotNil(t, removed.NewPrimaryID)
	assert.Equal(t, a.ID, *removed.NewPrimaryID)

	resp, err = http.Get(c.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/admin/products/"+p.ID+"/images", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{0, 1}, orders(decode[[]*domain.ProductImage](t, resp)))

	resp = api.do(t, http.MethodPost, "/admin/products/"+p.ID+"/images/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{a.ID, b.ID}, ids(decode[[]*domain.ProductImage](t, resp)))

	resp = api.do(t, http.MethodGet, "/admin/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[service.ProductDetail](t, resp)
	assert.Equal(t, []string{a.ID, b.ID}, ids(detail.Images))
}

func TestRemoveLastImage(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, "Eveul Júpiter")
	img := api.addImage(t, p.ID)

	resp := api.do(t, http.MethodDelete, "/admin/images/"+img.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.JSONEq(t, `[]`, string(body["images"]))
	assert.JSONEq(t, `null`, string(body["primaryId"]))
}

func TestImageErrors(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct(t, "Eveul Júpiter")
	other := api.createProduct(t, "Eveul Saturno")
	img := api.addImage(t, p.ID)

	t.Run("upload without file", func(t *testing.T) {
		resp := api.upload(t, p.ID, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("upload to unknown product", func(t *testing.T) {
		resp := api.upload(t, "missing", "wrist.png", "image/png", pngPixel)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("upload too large", func(t *testing.T) {
		resp := api.upload(t, p.ID, "big.png", "image/png", bytes.Repeat([]byte{1}, 1<<20+10<<10))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("patch without makePrimary", func(t *testing.T) {
		resp := api.do(t, http.MethodPatch, "/admin/images/"+img.ID, map[string]any{"productId": p.ID})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("promote through another product", func(t *testing.T) {
		resp := api.do(t, http.MethodPatch, "/admin/images/"+img.ID, map[string]any{"makePrimary": true, "productId": other.ID})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "mismatch", decode[ErrorResponse](t, resp).Kind)
	})

	t.Run("unknown image", func(t *testing.T) {
		resp := api.do(t, http.MethodDelete, "/admin/images/missing", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", decode[ErrorResponse](t, resp).Kind)
	})

	t.Run("path traversal", func(t *testing.T) {
		resp := api.do(t, http.MethodGet, "/images/..%2F..%2Fetc%2Fpasswd", nil)
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})
}

func TestNewsletter(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/newsletter", map[string]string{"email": "Ana@Example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, service.SubscriptionCreated, decode[service.SubscribeResult](t, resp).Status)

	resp = api.do(t, http.MethodPost, "/newsletter", map[string]string{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.SubscriptionExists, decode[service.SubscribeResult](t, resp).Status)

	resp = api.do(t, http.MethodPost, "/newsletter", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestKeepalive(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/keepalive?token=wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/keepalive?token="+keepaliveToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[KeepaliveResponse](t, resp)
	assert.True(t, body.OK)
	assert.WithinDuration(t, time.Now(), body.TS, time.Minute)
}

func TestDocsAndCORS(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/swagger.yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "/admin/images/{imageId}")

	resp = api.do(t, http.MethodGet, "/docs", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, api.srv.URL+"/admin/products", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = api.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func ids(images []*domain.ProductImage) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}

func orders(images []*domain.ProductImage) []int {
	out := make([]int, len(images))
	for i, img := range images {
		out[i] = img.SortOrder
	}
	return out
}
