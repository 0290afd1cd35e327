package admin

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"storefront/db"
	"storefront/filemgr"
	"storefront/globals"
	"storefront/models"
	"storefront/products"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	maxUploadMemory = 32 << 20
	maxImagesPerReq = 10
	imageFolder     = "products"
)

// UploadProductImages handles POST /api/admin/products/:id/images. Files come
// from the multipart field "images"; each is stored with a thumbnail and its
// URL appended to the product.
func UploadProductImages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return utils.BadRequest("Invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		return utils.BadRequest("No images uploaded")
	}
	if len(files) > maxImagesPerReq {
		return utils.BadRequest("Too many images in one request")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := findProduct(ctx, id.Hex()); err != nil {
		return err
	}

	store := filemgr.Store{Root: globals.UploadDir}
	saved, err := saveAll(store, files)
	if err != nil {
		return err
	}
	urls := make([]string, 0, len(saved))
	for _, s := range saved {
		urls = append(urls, s.URL)
	}

	var updated models.Product
	err = db.ProductCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"images": bson.M{"$each": urls}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		store.Remove(saved...)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.NotFound("Product not found")
		}
		return utils.Internal("Failed to attach images", err)
	}
	products.Invalidate(ctx, id)

	log.Info().Str("productId", id.Hex()).Int("count", len(saved)).Msg("product images uploaded")
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"message": "Images uploaded successfully",
		"images":  saved,
		"product": updated,
	})
	return nil
}

// saveAll stores every file or none: on the first failure the files already
// written are removed.
func saveAll(store filemgr.Store, files []*multipart.FileHeader) ([]filemgr.Saved, error) {
	saved := make([]filemgr.Saved, 0, len(files))
	for _, hdr := range files {
		s, err := saveOne(store, hdr)
		if err != nil {
			store.Remove(saved...)
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

func saveOne(store filemgr.Store, hdr *multipart.FileHeader) (filemgr.Saved, error) {
	f, err := hdr.Open()
	if err != nil {
		return filemgr.Saved{}, utils.BadRequest("Could not read " + hdr.Filename)
	}
	defer f.Close()

	s, err := store.SaveImage(f, hdr.Filename, imageFolder)
	if err != nil {
		if filemgr.IsClientError(err) {
			return filemgr.Saved{}, utils.BadRequest(hdr.Filename + ": " + err.Error())
		}
		return filemgr.Saved{}, utils.Internal("Failed to store image", err)
	}
	return s, nil
}
