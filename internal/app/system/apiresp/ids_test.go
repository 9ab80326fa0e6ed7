package apiresp_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/system/apiresp"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPathID(t *testing.T) {
	id := primitive.NewObjectID()
	tests := []struct {
		name    string
		path    string
		want    primitive.ObjectID
		wantKey string
	}{
		{"valid", "/orgs/" + id.Hex(), id, ""},
		{"not hex", "/orgs/garden-club", primitive.NilObjectID, "validation.id_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got primitive.ObjectID
			var gotErr error
			r := chi.NewRouter()
			r.Get("/orgs/{id}", func(w http.ResponseWriter, r *http.Request) {
				got, gotErr = apiresp.PathID(r, "id")
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if tt.wantKey != "" {
				e, ok := wferr.As(gotErr)
				if !ok || e.Key != tt.wantKey {
					t.Fatalf("err = %v, want key %q", gotErr, tt.wantKey)
				}
				return
			}
			if gotErr != nil {
				t.Fatalf("PathID: %v", gotErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestQueryID(t *testing.T) {
	id := primitive.NewObjectID()

	got, err := apiresp.QueryID(httptest.NewRequest(http.MethodGet, "/x", nil), "org_id")
	if err != nil || !got.IsZero() {
		t.Errorf("absent: got %s, %v; want nil id", got.Hex(), err)
	}

	got, err = apiresp.QueryID(httptest.NewRequest(http.MethodGet, "/x?org_id="+id.Hex(), nil), "org_id")
	if err != nil || got != id {
		t.Errorf("present: got %s, %v", got.Hex(), err)
	}

	_, err = apiresp.QueryID(httptest.NewRequest(http.MethodGet, "/x?org_id=zzz", nil), "org_id")
	if e, ok := wferr.As(err); !ok || e.Key != "validation.org_id_invalid" {
		t.Errorf("bad id: got %v", err)
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	apiresp.Fail(rec, http.StatusTooManyRequests, "rate_limited", "request.rate_limited", "slow down")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body.Success || body.Error == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Error.Code != "request.rate_limited" || body.Error.Kind != "rate_limited" {
		t.Errorf("error = %+v", body.Error)
	}
}
