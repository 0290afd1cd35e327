package orders

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/globals"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// TrackingURL is the public tracking link for an order number.
func TrackingURL(base, orderNumber string) string {
	return strings.TrimRight(base, "/") + "/api/orders/track/" + orderNumber
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// renderInvoice lays out an A4 invoice with a tracking QR code.
func renderInvoice(order *models.Order, trackURL string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(trackURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.OrderNumber, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Order: "+order.OrderNumber)
	pdf.Ln(6)
	pdf.Cell(0, 7, "Date: "+order.CreatedAt.Format("02 Jan 2006"))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s / payment %s", order.OrderStatus, order.PaymentStatus))
	pdf.Ln(10)

	a := order.ShippingAddress
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Ship to")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{
		a.FullName,
		a.Street,
		fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode),
		a.Country,
		a.Phone,
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 20, 35, 35, false, imageOpts, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Size", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 8, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range order.Items {
		pdf.CellFormat(90, 7, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, it.Size, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, strconv.Itoa(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, money(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, money(it.Price*float64(it.Quantity)), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	for _, row := range []struct {
		label string
		value float64
	}{
		{"Items", order.ItemsPrice},
		{"Shipping", order.ShippingPrice},
		{"Tax", order.TaxPrice},
		{"Total", order.TotalAmount},
	} {
		if row.label == "Total" {
			pdf.SetFont("Arial", "B", 11)
		}
		pdf.CellFormat(155, 7, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, money(row.value), "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// GetInvoice handles GET /api/orders/:id/invoice
func GetInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := loadVisibleOrder(ctx, r, ps.ByName("id"))
	if err != nil {
		return err
	}
	data, err := renderInvoice(order, TrackingURL(globals.PublicURL, order.OrderNumber))
	if err != nil {
		return utils.Internal("Failed to generate invoice", err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+order.OrderNumber+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}

// GetTrackingQR handles GET /api/orders/:id/qr
func GetTrackingQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := loadVisibleOrder(ctx, r, ps.ByName("id"))
	if err != nil {
		return err
	}
	png, err := qrcode.Encode(TrackingURL(globals.PublicURL, order.OrderNumber), qrcode.Medium, 256)
	if err != nil {
		return utils.Internal("Failed to generate QR code", err)
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
	return nil
}
