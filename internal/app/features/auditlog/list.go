// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/apiresp"
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/app/system/timeouts"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// ServeList handles GET /api/audit?org_id=&category=&event_type=&start_date=&end_date=&page=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	orgID, err := apiresp.QueryID(r, "org_id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	page := 1
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			apiresp.Error(w, r, h.Log, wferr.Validation("validation.page_invalid", "page must be a positive number"))
			return
		}
		page = p
	}

	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if v := strings.TrimSpace(q.Get("start_date")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			apiresp.Error(w, r, h.Log, wferr.Validation("validation.start_date_invalid", "start_date must be YYYY-MM-DD"))
			return
		}
		filter.StartTime = &t
	}
	if v := strings.TrimSpace(q.Get("end_date")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			apiresp.Error(w, r, h.Log, wferr.Validation("validation.end_date_invalid", "end_date must be YYYY-MM-DD"))
			return
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Svc.AuditTrail(ctx, auth.Actor(r), orgID, filter)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, events)
}
