package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/oldphonedeals/backend/api/responses"
	adminsvc "github.com/oldphonedeals/backend/internal/admin"
	"github.com/oldphonedeals/backend/pkg/logger"
)

// AdminSalesLog returns one page of completed orders, newest first.
func AdminSalesLog(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 0)

		result, err := svc.SalesLog(r.Context(), page, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminExportSales streams the full sales log as a JSON or CSV download.
func AdminExportSales(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")

		body, contentType, err := svc.ExportSales(r.Context(), format)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ext := "json"
		if format == adminsvc.ExportFormatCSV {
			ext = "csv"
		}
		filename := fmt.Sprintf("sales-%s.%s", time.Now().UTC().Format("20060102"), ext)

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
