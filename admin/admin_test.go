package admin

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storefront/filemgr"
	"storefront/globals"
	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func ptr[T any](v T) *T { return &v }

func TestCheckDiscount(t *testing.T) {
	assert.NoError(t, checkDiscount(100, nil))
	assert.NoError(t, checkDiscount(100, ptr(80.0)))
	assert.NoError(t, checkDiscount(100, ptr(0.0)), "zero means no discount")
	assert.Error(t, checkDiscount(100, ptr(100.0)))
	assert.Error(t, checkDiscount(100, ptr(120.0)))
}

func TestCheckSizes(t *testing.T) {
	assert.NoError(t, checkSizes([]models.SizeStock{{Size: "S", Stock: 1}, {Size: "M", Stock: 0}}))
	assert.EqualError(t, checkSizes([]models.SizeStock{{Size: "S"}, {Size: "S"}}), "Duplicate size: S")
}

func TestProductRequestToProduct(t *testing.T) {
	now := time.Now()
	admin := primitive.NewObjectID()
	p := productRequest{Name: "  Tee ", Description: "cotton", Price: 499, Category: "Shirts "}.toProduct(admin, now)

	assert.Equal(t, "Tee", p.Name)
	assert.Equal(t, "Shirts", p.Category)
	assert.True(t, p.IsActive)
	assert.NotNil(t, p.Images)
	assert.NotNil(t, p.Reviews)
	assert.Equal(t, admin, p.CreatedBy)
	assert.False(t, p.ID.IsZero())
}

func TestProductPatchSetFields(t *testing.T) {
	now := time.Now()
	current := &models.Product{Price: 100, DiscountPrice: ptr(90.0)}

	set, err := productPatch{Name: ptr(" New "), IsActive: ptr(false)}.setFields(current, now)
	require.NoError(t, err)
	assert.Equal(t, "New", set["name"])
	assert.Equal(t, false, set["isActive"])
	assert.Equal(t, now, set["updatedAt"])
	assert.NotContains(t, set, "price")

	// lowering the price below the stored discount is refused
	_, err = productPatch{Price: ptr(80.0)}.setFields(current, now)
	assert.Error(t, err)

	set, err = productPatch{Price: ptr(80.0), DiscountPrice: ptr(70.0)}.setFields(current, now)
	require.NoError(t, err)
	assert.Equal(t, 80.0, set["price"])
	assert.Equal(t, 70.0, set["discountPrice"])

	_, err = productPatch{Sizes: &[]models.SizeStock{{Size: "L"}, {Size: "L"}}}.setFields(current, now)
	assert.Error(t, err)
}

func TestOrderQuery(t *testing.T) {
	base, rest, err := orderQuery(url.Values{"status": {"shipped"}, "page": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, "shipped", base["orderStatus"])
	assert.Empty(t, rest.Get("status"))
	assert.Equal(t, "2", rest.Get("page"))

	_, _, err = orderQuery(url.Values{"status": {"lost"}})
	assert.Error(t, err)

	base, _, err = orderQuery(url.Values{})
	require.NoError(t, err)
	assert.Empty(t, base)
}

func TestBuildWorkbook(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	list := []models.Product{
		{ID: primitive.NewObjectID(), Name: "Tee", Price: 10, Sizes: []models.SizeStock{{Size: "S", Stock: 2}, {Size: "M", Stock: 3}}, IsActive: true, CreatedAt: created},
		{ID: primitive.NewObjectID(), Name: "Mug", Price: 5, DiscountPrice: ptr(4.0), Stock: 7},
	}
	file, err := buildWorkbook(list)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	rows := file.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0].Cells[0].Value)
	assert.Equal(t, "Tee", rows[1].Cells[1].Value)
	assert.Equal(t, "5", rows[1].Cells[6].Value)
	assert.Equal(t, "S:2,M:3", rows[1].Cells[7].Value)
	assert.Equal(t, "2026-01-02 03:04:05", rows[1].Cells[12].Value)
	assert.Equal(t, "7", rows[2].Cells[6].Value)
}

func TestCreateProductRejectsInvalidBody(t *testing.T) {
	h := middleware.Handle(CreateProduct)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products", strings.NewReader(`{"name":"Tee","price":-1}`))
	ctx := context.WithValue(req.Context(), globals.UserIDKey, primitive.NewObjectID().Hex())
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx), httprouter.Params{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestUpdateUserRefusesSelf(t *testing.T) {
	self := primitive.NewObjectID()
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/x/role", nil)
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, self.Hex()))

	_, err := updateUser(req, self.Hex(), map[string]any{"role": "user"})
	assert.EqualError(t, err, "You cannot change your own account here")
}

func uploadFiles(t *testing.T, parts map[string][]byte, order []string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range order {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(parts[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(maxUploadMemory))
	t.Cleanup(func() { _ = req.MultipartForm.RemoveAll() })
	return req.MultipartForm.File["images"]
}

func storedFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			found = append(found, p)
		}
		return err
	})
	require.NoError(t, err)
	return found
}

func TestSaveAllRollsBackOnBadFile(t *testing.T) {
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 40))))
	files := uploadFiles(t, map[string][]byte{
		"front.png": img.Bytes(),
		"notes.png": []byte("plain text, not an image"),
	}, []string{"front.png", "notes.png"})

	store := filemgr.Store{Root: t.TempDir()}
	saved, err := saveAll(store, files)

	require.Error(t, err)
	var apiErr *utils.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Nil(t, saved)
	assert.Empty(t, storedFiles(t, store.Root))
}

func TestSaveAllKeepsGoodFiles(t *testing.T) {
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 40))))
	files := uploadFiles(t, map[string][]byte{"a.png": img.Bytes(), "b.png": img.Bytes()}, []string{"a.png", "b.png"})

	store := filemgr.Store{Root: t.TempDir()}
	saved, err := saveAll(store, files)

	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Len(t, storedFiles(t, store.Root), 4)
}

func TestOrderDetail(t *testing.T) {
	order := &models.Order{ID: primitive.NewObjectID()}
	customer := &models.User{ID: primitive.NewObjectID(), Name: "Asha", Email: "a@x.com"}

	data, err := orderDetail(order, customer, nil)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", data["customer"].(utils.M)["email"])

	data, err = orderDetail(order, customer, mongo.ErrNoDocuments)
	require.NoError(t, err)
	assert.NotContains(t, data, "customer")
	assert.Equal(t, order, data["order"])

	_, err = orderDetail(order, customer, errors.New("connection reset"))
	var apiErr *utils.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}
