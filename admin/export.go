package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/db"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var exportHeaders = []string{
	"ID", "Name", "Category", "Brand", "Price", "DiscountPrice",
	"Stock", "Sizes", "Rating", "NumReviews", "Active", "Featured",
	"CreatedAt", "UpdatedAt",
}

func sizesCell(sizes []models.SizeStock) string {
	parts := make([]string, 0, len(sizes))
	for _, s := range sizes {
		parts = append(parts, s.Size+":"+strconv.Itoa(s.Stock))
	}
	return strings.Join(parts, ",")
}

// buildWorkbook renders one row per product under a header row.
func buildWorkbook(list []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, p := range list {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID.Hex())
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(p.Brand)
		row.AddCell().SetFloat(p.Price)
		if p.DiscountPrice != nil {
			row.AddCell().SetFloat(*p.DiscountPrice)
		} else {
			row.AddCell().SetValue("")
		}
		row.AddCell().SetInt(p.TotalStock())
		row.AddCell().SetValue(sizesCell(p.Sizes))
		row.AddCell().SetFloat(p.Rating)
		row.AddCell().SetInt(p.NumReviews)
		row.AddCell().SetBool(p.IsActive)
		row.AddCell().SetBool(p.IsFeatured)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

// ExportProducts handles GET /api/admin/export/products
func ExportProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"reviews": 0})
	cur, err := db.ProductCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return utils.Internal("Failed to fetch products", err)
	}
	list := []models.Product{}
	if err := cur.All(ctx, &list); err != nil {
		return utils.Internal("Failed to fetch products", err)
	}

	file, err := buildWorkbook(list)
	if err != nil {
		return utils.Internal("Failed to create Excel sheet", err)
	}

	w.Header().Set("Content-Disposition", "attachment; filename=products-"+time.Now().Format("20060102")+".xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	if err := file.Write(w); err != nil {
		// headers are already out; nothing useful can reach the client
		log.Error().Err(err).Msg("product export write failed")
	}
	return nil
}
