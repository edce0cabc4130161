package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"absensi/internal/auth"
	"absensi/internal/config"
	"absensi/internal/ledger"
	"absensi/internal/scan"
	"absensi/internal/student"
	"absensi/internal/token"
)

type testEnv struct {
	router   *gin.Engine
	students *student.MemoryRepository
	codec    *token.Codec
	gate     *auth.Gate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.App{
		JWTIssuer:       "absensi-api",
		JWTSigningKey:   "test-jwt-secret",
		QRSigningKey:    "test-qr-secret",
		SessionTTL:      24 * time.Hour,
		RateLimitPerMin: 1000,
	}
	students := student.NewMemoryRepository()
	codec := token.NewCodec(cfg.QRSigningKey)
	records := ledger.NewService(ledger.NewMemoryRepository())
	pipeline := scan.NewService(codec, students, records, nil)

	users := auth.NewMemoryUserRepository()
	hasher := auth.MD5Hasher{}
	stored, _ := hasher.Hash("admin123")
	users.Add(auth.User{ID: 1, Username: "admin", Password: stored, Nama: "Administrator", Role: "admin"})
	gate := auth.NewGate(users, hasher, cfg.JWTSigningKey, cfg.JWTIssuer, cfg.SessionTTL)

	srv := New(cfg, nil, nil, codec, students, records, pipeline, gate, nil)
	return &testEnv{router: srv.Router(), students: students, codec: codec, gate: gate}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var parsed map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("parse response %q: %v", w.Body.String(), err)
		}
	}
	return w, parsed
}

func (e *testEnv) loginToken(t *testing.T) string {
	t.Helper()
	w, body := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "admin", "password": "admin123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body.String())
	}
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatal("login returned no token")
	}
	return tok
}

func TestScanNISNFlow(t *testing.T) {
	env := newTestEnv(t)
	env.students.Add(student.Student{NIS: "2021001", NISN: "0096279244", Nama: "Budi Santoso", Gender: "L"})

	w, body := env.do(t, http.MethodPost, "/api/scan-nisn", "", gin.H{"nisn": "0096279244"})
	if w.Code != http.StatusOK {
		t.Fatalf("first scan status = %d body=%s", w.Code, w.Body.String())
	}
	att, _ := body["attendance"].(map[string]any)
	firstTime, _ := att["time"].(string)
	if firstTime == "" {
		t.Fatalf("no attendance time in %v", body)
	}

	w, body = env.do(t, http.MethodPost, "/api/scan-nisn", "", gin.H{"nisn": "0096279244"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}
	att, _ = body["attendance"].(map[string]any)
	if got, _ := att["time"].(string); got != firstTime {
		t.Errorf("duplicate time = %q, want original %q", got, firstTime)
	}
	if msg, _ := body["message"].(string); msg != "Budi Santoso sudah absen hari ini" {
		t.Errorf("message = %q", msg)
	}
}

func TestScanNISNRejectsBadFormat(t *testing.T) {
	env := newTestEnv(t)
	for _, bad := range []string{"12345", "12345678901", "123456789A"} {
		w, _ := env.do(t, http.MethodPost, "/api/scan-nisn", "", gin.H{"nisn": bad})
		if w.Code != http.StatusBadRequest {
			t.Errorf("nisn %q: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestQRVerifyOutcomes(t *testing.T) {
	env := newTestEnv(t)
	st := env.students.Add(student.Student{NIS: "2021002", NISN: "1234567890", Nama: "Siti Aminah"})

	// Unknown student.
	w, _ := env.do(t, http.MethodPost, "/api/qr/verify", "", gin.H{"qr_data": "9999999999"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown student status = %d, want 404", w.Code)
	}

	// Tampered envelope.
	payload, err := env.codec.EncodeSigned(st.NIS, st.ID, st.CardVersion)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}
	tampered := bytes.Replace([]byte(payload), []byte(`"card_version":1`), []byte(`"card_version":2`), 1)
	w, _ = env.do(t, http.MethodPost, "/api/qr/verify", "", gin.H{"qr_data": string(tampered)})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("tampered status = %d, want 401", w.Code)
	}

	// Valid signed scan.
	w, _ = env.do(t, http.MethodPost, "/api/qr/verify", "", gin.H{"qr_data": payload})
	if w.Code != http.StatusOK {
		t.Fatalf("signed scan status = %d body=%s", w.Code, w.Body.String())
	}

	// Reissue, then the old payload is stale.
	tok := env.loginToken(t)
	w, _ = env.do(t, http.MethodPost, "/api/students/2021002/reissue-card", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reissue status = %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/qr/verify", "", gin.H{"qr_data": payload})
	if w.Code != http.StatusForbidden {
		t.Errorf("stale card status = %d, want 403", w.Code)
	}
}

func TestQRVerifyAcceptsTokenField(t *testing.T) {
	env := newTestEnv(t)
	env.students.Add(student.Student{NIS: "2021005", NISN: "3333333333", Nama: "Rina"})

	// Older scanner builds send the payload under "token".
	w, _ := env.do(t, http.MethodPost, "/api/qr/verify", "", gin.H{"token": "3333333333"})
	if w.Code != http.StatusOK {
		t.Fatalf("token-field scan status = %d body=%s", w.Code, w.Body.String())
	}

	w, body := env.do(t, http.MethodPost, "/api/qr/verify", "", gin.H{"location": "Gerbang"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty payload status = %d, want 400", w.Code)
	}
	if msg, _ := body["message"].(string); msg != "QR data diperlukan" {
		t.Errorf("empty payload message = %q", msg)
	}
}

func TestListStudents(t *testing.T) {
	env := newTestEnv(t)
	env.students.Add(student.Student{NIS: "2021010", NISN: "4444444444", Nama: "Dewi"})
	env.students.Add(student.Student{NIS: "2021002", NISN: "5555555555", Nama: "Joko"})

	w, _ := env.do(t, http.MethodGet, "/api/students", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	tok := env.loginToken(t)
	w, body := env.do(t, http.MethodGet, "/api/students", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d body=%s", w.Code, w.Body.String())
	}
	if total, _ := body["total"].(float64); total != 2 {
		t.Errorf("total = %v, want 2", body["total"])
	}
	list, _ := body["students"].([]any)
	if len(list) != 2 {
		t.Fatalf("students length = %d, want 2", len(list))
	}
	first, _ := list[0].(map[string]any)
	if nis, _ := first["nis"].(string); nis != "2021002" {
		t.Errorf("first NIS = %q, want list ordered by NIS", nis)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/attendance/today", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	w, body := env.do(t, http.MethodGet, "/api/attendance/today", "garbage", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}
	if msg, _ := body["message"].(string); msg != "Token tidak valid" {
		t.Errorf("bad token message = %q", msg)
	}

	tok := env.loginToken(t)
	w, _ = env.do(t, http.MethodGet, "/api/attendance/today", tok, nil)
	if w.Code != http.StatusOK {
		t.Errorf("with token status = %d, want 200", w.Code)
	}
}

func TestManualAttendanceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.students.Add(student.Student{NIS: "2021003", NISN: "2222222222", Nama: "Andi"})
	tok := env.loginToken(t)

	w, body := env.do(t, http.MethodPost, "/api/attendance/manual", tok, gin.H{"nis": "2021003", "status": "Izin", "keterangan": "acara keluarga"})
	if w.Code != http.StatusOK {
		t.Fatalf("manual status = %d body=%s", w.Code, w.Body.String())
	}
	att, _ := body["attendance"].(map[string]any)
	id, _ := att["id"].(string)
	if id == "" {
		t.Fatalf("no record id in %v", body)
	}

	// Same day again conflicts.
	w, _ = env.do(t, http.MethodPost, "/api/attendance/manual", tok, gin.H{"nis": "2021003", "status": "Hadir"})
	if w.Code != http.StatusConflict {
		t.Errorf("second manual status = %d, want 409", w.Code)
	}

	// Invalid status rejected.
	w, _ = env.do(t, http.MethodPost, "/api/attendance/manual", tok, gin.H{"nis": "2021003", "status": "Bolos"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", w.Code)
	}

	w, _ = env.do(t, http.MethodPut, "/api/attendance/"+id, tok, gin.H{"status": "Sakit", "keterangan": "surat dokter"})
	if w.Code != http.StatusOK {
		t.Errorf("update status = %d, want 200", w.Code)
	}

	w, _ = env.do(t, http.MethodDelete, "/api/attendance/"+id, tok, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", w.Code)
	}
	w, _ = env.do(t, http.MethodDelete, "/api/attendance/"+id, tok, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "admin", "password": "salah"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestQRGenerateReturnsSignedPayload(t *testing.T) {
	env := newTestEnv(t)
	env.students.Add(student.Student{NIS: "2021004", NISN: "3333333333", Nama: "Rina"})
	tok := env.loginToken(t)

	w, body := env.do(t, http.MethodGet, "/api/qr/generate/2021004", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d body=%s", w.Code, w.Body.String())
	}
	qrData, _ := body["qr_data"].(string)
	decoded, err := env.codec.Decode(qrData)
	if err != nil {
		t.Fatalf("generated payload does not decode: %v", err)
	}
	if decoded.Kind != token.KindSigned || decoded.Envelope.NIS != "2021004" {
		t.Errorf("decoded = %+v", decoded)
	}
	if img, _ := body["qr_image"].(string); len(img) < len("data:image/png;base64,")+10 {
		t.Errorf("qr_image too short: %d bytes", len(img))
	}
}
