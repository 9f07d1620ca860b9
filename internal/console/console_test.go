package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-lifecycle-service/internal/client"
	"order-lifecycle-service/internal/controller"
	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository/mocks"
	"order-lifecycle-service/internal/service"
	"order-lifecycle-service/internal/storage"
	"order-lifecycle-service/internal/upload"
)

type memFileStore struct {
	mu      sync.Mutex
	next    int
	files   map[string][]byte
	failOn  int // número de subida que falla, 0 = ninguna
	onPut   func()
	deletes []string
}

func (m *memFileStore) Put(_ context.Context, name, contentType, category string, r io.Reader) (*storage.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if m.onPut != nil {
		m.onPut()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	if m.next == m.failOn {
		return nil, errors.New("disk full")
	}
	id := fmt.Sprintf("f%03d", m.next)
	m.files[id] = data
	return &storage.FileInfo{ID: id, Name: name, Category: category, ContentType: contentType, Size: int64(len(data))}, nil
}

func (m *memFileStore) Open(_ context.Context, id string) (io.ReadCloser, *storage.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id]
	if !ok {
		return nil, nil, storage.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &storage.FileInfo{ID: id, Size: int64(len(data))}, nil
}

func (m *memFileStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	delete(m.files, id)
	return nil
}

func (m *memFileStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type tokens map[string]*service.AuthUser

func (t tokens) ValidateToken(token string) (*service.AuthUser, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

type testEnv struct {
	console  *httptest.Server
	calls    *atomic.Int64 // requests que llegaron al servicio de órdenes
	repo     *mocks.MockOrderRepository
	files    *memFileStore
	previews *upload.Previews
}

// newTestEnv levanta el servicio de órdenes real (con repo en memoria) y la
// consola apuntando a él.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := tokens{
		"admin": {ID: "admin-1", Permissions: []string{"admin"}, Enabled: true},
		"user":  {ID: "u-1", Permissions: []string{"user"}, Enabled: true},
	}

	repo := mocks.NewMockOrderRepository()
	files := &memFileStore{files: map[string][]byte{}}
	fileCtl := controller.NewFileController(files, "", 1<<20)
	router := controller.NewRouter(
		controller.NewOrderController(service.NewOrderService(repo, nil)),
		fileCtl,
		auth,
	)
	calls := &atomic.Int64{}
	orders := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(orders.Close)
	fileCtl.PublicURL = orders.URL

	previews := upload.NewPreviews()
	h := NewHandler(client.New(orders.URL, 5*time.Second), previews, 1<<20)
	console := httptest.NewServer(NewRouter(h, auth))
	t.Cleanup(console.Close)

	return &testEnv{console: console, calls: calls, repo: repo, files: files, previews: previews}
}

func (e *testEnv) seed(id string, status model.Status, receipts ...string) {
	if receipts == nil {
		receipts = []string{}
	}
	e.repo.Seed(&model.Order{
		ID:            id,
		OrderNumber:   "ORD-" + id,
		UserID:        "u-1",
		Status:        status,
		PaymentStatus: model.PaymentUnpaid,
		Total:         250000,
		ReceiptImages: receipts,
		Version:       1,
	})
}

func (e *testEnv) request(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.console.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer admin")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) json(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	return e.request(t, method, path, "application/json", strings.NewReader(body))
}

type formFile struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, values map[string][]string, files ...formFile) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		hdr.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestConsole_NextStatuses(t *testing.T) {
	tests := []struct {
		current model.Status
		want    []model.Status
	}{
		{model.StatusPending, []model.Status{model.StatusConfirmed, model.StatusCancelled}},
		{model.StatusReceived, []model.Status{model.StatusReturned}},
		{model.StatusReturned, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.current), func(t *testing.T) {
			env := newTestEnv(t)
			env.seed("o-1", tt.current)

			resp := env.request(t, http.MethodGet, "/orders/o-1/next-statuses", "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			res := decode[NextStatusesResponse](t, resp)

			assert.Equal(t, dto.NewStatusOption(tt.current), res.Current)
			require.Len(t, res.Next, len(tt.want))
			for i, s := range tt.want {
				assert.Equal(t, s, res.Next[i].Status)
				assert.Equal(t, s.Label(), res.Next[i].Label)
				assert.Equal(t, s.Icon(), res.Next[i].Icon)
			}
		})
	}
}

func TestConsole_GetOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending)

	resp := env.request(t, http.MethodGet, "/orders/o-1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ORD-o-1", decode[model.Order](t, resp).OrderNumber)

	resp = env.request(t, http.MethodGet, "/orders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConsole_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending)

	req, err := http.NewRequest(http.MethodGet, env.console.URL+"/orders/o-1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer user")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConsole_Transition(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusConfirmed)

	resp := env.json(t, http.MethodPost, "/orders/o-1/transition", `{"status":"preparing","note":"packing started"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	o := decode[model.Order](t, resp)
	assert.Equal(t, model.StatusPreparing, o.Status)
	require.NotNil(t, o.CurrentRecord())
	assert.Equal(t, "packing started", o.CurrentRecord().Note)
	assert.Equal(t, "admin-1", o.CurrentRecord().UserID)

	// preparing -> received no está en la tabla: la consola lo frena sin llamar al servicio
	calls := len(env.repo.UpdateStatusCalls)
	resp = env.json(t, http.MethodPost, "/orders/o-1/transition", `{"status":"received"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "status", decode[dto.ErrorResponse](t, resp).Field)
	assert.Len(t, env.repo.UpdateStatusCalls, calls)

	resp = env.json(t, http.MethodPost, "/orders/o-1/transition", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.json(t, http.MethodPost, "/orders/o-1/transition", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConsole_Payment_WithoutReceiptsKeepsThem(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending, "https://cdn.example.com/r1.jpg")

	ct, body := multipartBody(t, map[string][]string{
		"paymentStatus": {"paid"},
		"amount":        {"250000"},
		"note":          {"transferencia"},
	})
	resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	o := decode[model.Order](t, resp)
	assert.Equal(t, model.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.Equal(t, int64(250000), o.PaidAmount)
	assert.Equal(t, []string{"https://cdn.example.com/r1.jpg"}, o.ReceiptImages)
}

func TestConsole_Payment_UploadsNewReceipts(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusReady, "https://cdn.example.com/r1.jpg")

	ct, body := multipartBody(t,
		map[string][]string{
			"paymentStatus":   {"paid"},
			"amount":          {"250000"},
			"receiptImages[]": {"https://cdn.example.com/r1.jpg"},
		},
		formFile{"files[]", "r2.jpg", "image/jpeg", []byte("jpeg-2")},
		formFile{"files[]", "r3.png", "image/png", []byte("png-3")},
	)
	resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	o := decode[model.Order](t, resp)
	require.Len(t, o.ReceiptImages, 3)
	assert.Equal(t, "https://cdn.example.com/r1.jpg", o.ReceiptImages[0])
	assert.Contains(t, o.ReceiptImages[1], "/files/f001")
	assert.Contains(t, o.ReceiptImages[2], "/files/f002")
	assert.Equal(t, 2, env.files.count())
	assert.Equal(t, model.StatusReady, o.Status)
}

func TestConsole_Payment_ClearReceipts(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending, "https://cdn.example.com/r1.jpg")

	ct, body := multipartBody(t, map[string][]string{
		"paymentStatus":   {"unpaid"},
		"amount":          {"0"},
		"receiptImages[]": {""},
	})
	resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[model.Order](t, resp).ReceiptImages)
}

func TestConsole_Payment_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string][]string
		files     []formFile
		wantField string
	}{
		{
			name:      "fractional amount",
			values:    map[string][]string{"paymentStatus": {"paid"}, "amount": {"12.5"}},
			wantField: "amount",
		},
		{
			name:      "negative amount",
			values:    map[string][]string{"paymentStatus": {"paid"}, "amount": {"-1"}},
			wantField: "amount",
		},
		{
			name:      "unknown payment status",
			values:    map[string][]string{"paymentStatus": {"refunded"}, "amount": {"1"}},
			wantField: "paymentStatus",
		},
		{
			name:      "not an image",
			values:    map[string][]string{"paymentStatus": {"paid"}, "amount": {"1"}},
			files:     []formFile{{"files[]", "notes.pdf", "application/pdf", []byte("%PDF")}},
			wantField: "files[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seed("o-1", model.StatusPending)

			ct, body := multipartBody(t, tt.values, tt.files...)
			resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantField, decode[dto.ErrorResponse](t, resp).Field)
			assert.Zero(t, env.calls.Load())
			assert.Equal(t, 0, env.files.count())
		})
	}
}

func TestConsole_Payment_BadCommittedURLUploadsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending)

	ct, body := multipartBody(t,
		map[string][]string{"paymentStatus": {"paid"}, "amount": {"1"}, "receiptImages[]": {"not-a-url"}},
		formFile{"files[]", "r1.jpg", "image/jpeg", []byte("r1")},
	)
	resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "receiptImages[0]", decode[dto.ErrorResponse](t, resp).Field)
	assert.Zero(t, env.calls.Load())
	assert.Equal(t, 0, env.files.count())
	assert.Empty(t, env.files.deletes)
}

func TestConsole_Payment_RejectedUpdateDiscardsNewUploads(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending, "https://cdn.example.com/r1.jpg")
	// otro operador edita la orden mientras se suben los comprobantes
	env.files.onPut = func() {
		env.repo.Seed(&model.Order{ID: "o-1", UserID: "u-1", Status: model.StatusConfirmed, PaymentStatus: model.PaymentUnpaid, Version: 7})
	}

	ct, body := multipartBody(t,
		map[string][]string{"paymentStatus": {"paid"}, "amount": {"1"}, "receiptImages[]": {"https://cdn.example.com/r1.jpg"}},
		formFile{"files[]", "r2.jpg", "image/jpeg", []byte("r2")},
		formFile{"files[]", "r3.jpg", "image/jpeg", []byte("r3")},
	)
	resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "version", decode[dto.ErrorResponse](t, resp).Field)

	assert.Equal(t, 0, env.files.count())
	assert.Equal(t, []string{"f002", "f001"}, env.files.deletes)
	require.Len(t, env.repo.UpdatePaymentCalls, 1)
}

func TestConsole_ListOrders(t *testing.T) {
	env := newTestEnv(t)
	env.seed("o-1", model.StatusPending)
	env.seed("o-2", model.StatusReady)

	resp := env.request(t, http.MethodGet, "/orders?status=ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decode[[]model.Order](t, resp)
	require.Len(t, orders, 1)
	assert.Equal(t, "o-2", orders[0].ID)

	resp = env.request(t, http.MethodGet, "/orders", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Order](t, resp), 2)

	calls := env.calls.Load()
	resp = env.request(t, http.MethodGet, "/orders?status=lost", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, calls, env.calls.Load())
}

func TestConsole_GetOrder_NotFoundField(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/orders/missing", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "orderId", decode[dto.ErrorResponse](t, resp).Field)
}

func TestConsole_Payment_TooManyReceipts(t *testing.T) {
	env := newTestEnv(t)
	committed := make([]string, 9)
	for i := range committed {
		committed[i] = fmt.Sprintf("https://cdn.example.com/r%d.jpg", i)
	}
	env.seed("o-1", model.StatusPending, committed...)

	ct, body := multipartBody(t,
		map[string][]string{"paymentStatus": {"paid"}, "amount": {"1"}, "receiptImages[]": committed},
		formFile{"files[]", "a.jpg", "image/jpeg", []byte("a")},
		formFile{"files[]", "b.jpg", "image/jpeg", []byte("b")},
	)
	resp := env.request(t, http.MethodPost, "/orders/o-1/payment", ct, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "receiptImages", decode[dto.ErrorResponse](t, resp).Field)
	assert.Equal(t, 0, env.files.count())
}

func TestConsole_UploadBatch(t *testing.T) {
	env := newTestEnv(t)

	ct, body := multipartBody(t, nil,
		formFile{"files[]", "b1.png", "image/png", []byte("b1")},
		formFile{"files[]", "b2.png", "image/png", []byte("b2")},
	)
	resp := env.request(t, http.MethodPost, "/uploads/banners", ct, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, decode[UploadBatchResponse](t, resp).URLs, 2)
	assert.Equal(t, 2, env.files.count())
}

func TestConsole_UploadBatch_RollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.files.failOn = 3

	ct, body := multipartBody(t, nil,
		formFile{"files[]", "p1.jpg", "image/jpeg", []byte("p1")},
		formFile{"files[]", "p2.jpg", "image/jpeg", []byte("p2")},
		formFile{"files[]", "p3.jpg", "image/jpeg", []byte("p3")},
	)
	resp := env.request(t, http.MethodPost, "/uploads/products", ct, body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 0, env.files.count())
	assert.Equal(t, []string{"f002", "f001"}, env.files.deletes)
}

func TestConsole_UploadBatch_BadInput(t *testing.T) {
	env := newTestEnv(t)

	ct, body := multipartBody(t, nil, formFile{"files[]", "a.png", "image/png", []byte("a")})
	assert.Equal(t, http.StatusBadRequest, env.request(t, http.MethodPost, "/uploads/avatars", ct, body).StatusCode)

	ct, body = multipartBody(t, nil)
	assert.Equal(t, http.StatusBadRequest, env.request(t, http.MethodPost, "/uploads/banners", ct, body).StatusCode)

	ct, body = multipartBody(t, nil,
		formFile{"files[]", "a.png", "image/png", []byte("a")},
		formFile{"files[]", "b.txt", "text/plain", []byte("b")},
	)
	resp := env.request(t, http.MethodPost, "/uploads/banners", ct, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "files[1]", decode[dto.ErrorResponse](t, resp).Field)
	assert.Equal(t, 0, env.files.count())
}

func TestConsole_Previews(t *testing.T) {
	env := newTestEnv(t)

	ct, body := multipartBody(t, nil, formFile{"file", "r.jpg", "image/jpeg", []byte("jpeg-bytes")})
	resp := env.request(t, http.MethodPost, "/previews", ct, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pv := decode[PreviewResponse](t, resp)
	require.NotEmpty(t, pv.Handle)
	assert.Equal(t, 1, env.previews.Len())

	resp = env.request(t, http.MethodGet, pv.URL, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusNoContent, env.request(t, http.MethodDelete, pv.URL, "", nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, env.request(t, http.MethodDelete, pv.URL, "", nil).StatusCode)
	assert.Equal(t, 0, env.previews.Len())
	assert.Equal(t, http.StatusNotFound, env.request(t, http.MethodGet, pv.URL, "", nil).StatusCode)

	ct, body = multipartBody(t, nil, formFile{"file", "doc.pdf", "application/pdf", []byte("%PDF")})
	assert.Equal(t, http.StatusBadRequest, env.request(t, http.MethodPost, "/previews", ct, body).StatusCode)
}
