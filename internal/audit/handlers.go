package audit

import (
	"net/http"

	"github.com/noah-isme/backend-erp/internal/common"
)

// Handler exposes HTTP endpoints for working with audit logs.
type Handler struct {
	Store    Store
	PageSize int
}

// List returns a paginated view of the audit trail, newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	pageSize := h.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page, perPage := common.ParsePagination(r, pageSize, 200)

	rows, err := h.Store.ListAuditLogs(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": rows,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int64(len(rows)),
		},
	})
}
