package conveyancing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/schemas"
	"github.com/conveydesk/conveydesk/internal/session"
)

type recordedRequest struct {
	method      string
	path        string
	query       string
	auth        string
	contentType string
	body        string
}

// newBackend starts a server that answers every request with status and body, and records the last request.
func newBackend(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*rec = recordedRequest{
			method:      r.Method,
			path:        r.URL.EscapedPath(),
			query:       r.URL.RawQuery,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        string(b),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func newTestService(baseURL string, store session.Store) *Service {
	opts := []client.Option{client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	if store != nil {
		opts = append(opts, client.WithSessionStore(store))
	}
	return NewService(client.NewClient(baseURL, opts...), nil)
}

func TestList(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCount int
		wantErr   bool
		wantMsg   string
	}{
		{"bare array", http.StatusOK, `[{"id":1,"reference":"CV-1"},{"id":"c-2"}]`, 2, false, ""},
		{"data envelope", http.StatusOK, `{"data":[{"id":1}],"meta":{"total":1}}`, 1, false, ""},
		{"empty list", http.StatusOK, `[]`, 0, false, ""},
		{"item without id", http.StatusOK, `[{"id":1},{"reference":"CV-2"}]`, 0, true, ""},
		{"object without data", http.StatusOK, `{"id":1}`, 0, true, ""},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Unauthenticated."}`, 0, true, client.MsgUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newBackend(t, tt.status, tt.body)
			svc := newTestService(server.URL, nil)

			items, res, err := svc.Cases.List(context.Background(), nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("List() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(items) != tt.wantCount {
				t.Errorf("List() got %d items, want %d", len(items), tt.wantCount)
			}
			if res.Error != tt.wantMsg {
				t.Errorf("List() result error = %q, want %q", res.Error, tt.wantMsg)
			}
		})
	}
}

func TestListQuery(t *testing.T) {
	server, rec := newBackend(t, http.StatusOK, `[]`)
	svc := newTestService(server.URL, nil)

	query := url.Values{"status": {"open"}, "page": {"2"}}
	if _, _, err := svc.Invoices.List(context.Background(), query); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if rec.path != "/invoices" {
		t.Errorf("path = %q, want /invoices", rec.path)
	}
	if rec.query != "page=2&status=open" {
		t.Errorf("query = %q, want page=2&status=open", rec.query)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  ID
		wantErr bool
	}{
		{"plain object", `{"id":12,"reference":"CV-12","status":"open"}`, "12", false},
		{"data envelope", `{"data":{"id":"c-12","reference":"CV-12"}}`, "c-12", false},
		{"invalid shape", `{"reference":"CV-12"}`, "", true},
		{"empty body", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, rec := newBackend(t, http.StatusOK, tt.body)
			svc := newTestService(server.URL, nil)

			raw, _, err := svc.Cases.Get(context.Background(), "12")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
			if rec.path != "/cases/12" {
				t.Errorf("path = %q, want /cases/12", rec.path)
			}
			if tt.wantErr {
				return
			}

			c, err := Decode[Case](raw)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if c.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", c.ID, tt.wantID)
			}
		})
	}
}

func TestGetEscapesID(t *testing.T) {
	server, rec := newBackend(t, http.StatusOK, `{"id":1}`)
	svc := newTestService(server.URL, nil)

	if _, _, err := svc.Banks.Get(context.Background(), "a/b c"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.path != "/banks/a%2Fb%20c" {
		t.Errorf("path = %q, want /banks/a%%2Fb%%20c", rec.path)
	}
}

func TestWriteOperations(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		respBody   string
		call       func(svc *Service) (json.RawMessage, client.Result, error)
		wantMethod string
		wantPath   string
		wantBody   string
		wantRaw    bool
	}{
		{
			name:     "create",
			status:   http.StatusCreated,
			respBody: `{"id":5,"name":"Leeds"}`,
			call: func(svc *Service) (json.RawMessage, client.Result, error) {
				return svc.Branches.Create(context.Background(), client.JSON(`{"name":"Leeds"}`))
			},
			wantMethod: http.MethodPost,
			wantPath:   "/branches",
			wantBody:   `{"name":"Leeds"}`,
			wantRaw:    true,
		},
		{
			name:     "update",
			status:   http.StatusOK,
			respBody: `{"id":5,"status":"completed"}`,
			call: func(svc *Service) (json.RawMessage, client.Result, error) {
				return svc.Appointments.Update(context.Background(), "5", client.JSON(`{"status":"completed"}`))
			},
			wantMethod: http.MethodPatch,
			wantPath:   "/appointments/5",
			wantBody:   `{"status":"completed"}`,
			wantRaw:    true,
		},
		{
			name:     "replace with no content",
			status:   http.StatusNoContent,
			respBody: ``,
			call: func(svc *Service) (json.RawMessage, client.Result, error) {
				return svc.Brokers.Replace(context.Background(), "9", client.JSON(`{"name":"Ada"}`))
			},
			wantMethod: http.MethodPut,
			wantPath:   "/brokers/9",
			wantBody:   `{"name":"Ada"}`,
			wantRaw:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, rec := newBackend(t, tt.status, tt.respBody)
			svc := newTestService(server.URL, nil)

			raw, res, err := tt.call(svc)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !res.OK {
				t.Errorf("ok = false, want true")
			}
			if rec.method != tt.wantMethod {
				t.Errorf("method = %q, want %q", rec.method, tt.wantMethod)
			}
			if rec.path != tt.wantPath {
				t.Errorf("path = %q, want %q", rec.path, tt.wantPath)
			}
			if rec.body != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.body, tt.wantBody)
			}
			if (raw != nil) != tt.wantRaw {
				t.Errorf("raw = %s, want present %v", raw, tt.wantRaw)
			}
		})
	}
}

func TestCreateValidationFailure(t *testing.T) {
	server, _ := newBackend(t, http.StatusBadRequest, `{"errors":{"name":["The name field is required."]}}`)
	svc := newTestService(server.URL, nil)

	_, res, err := svc.Branches.Create(context.Background(), client.JSON(`{}`))
	if err == nil {
		t.Fatal("Create() error = nil, want an error")
	}
	if res.Error != "The name field is required." {
		t.Errorf("result error = %q", res.Error)
	}
	clientErr, ok := client.AsError(err)
	if !ok {
		t.Fatalf("error type = %T, want *client.Error", err)
	}
	if clientErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", clientErr.StatusCode)
	}
}

func TestDelete(t *testing.T) {
	server, rec := newBackend(t, http.StatusNoContent, ``)
	svc := newTestService(server.URL, nil)

	res, err := svc.Invoices.Delete(context.Background(), "31")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if res.Status != http.StatusNoContent {
		t.Errorf("status = %d, want 204", res.Status)
	}
	if rec.method != http.MethodDelete || rec.path != "/invoices/31" {
		t.Errorf("request = %s %s, want DELETE /invoices/31", rec.method, rec.path)
	}
}

func TestUpload(t *testing.T) {
	server, rec := newBackend(t, http.StatusCreated, `{"id":77}`)
	svc := newTestService(server.URL, nil)

	form := (&client.Form{}).Add("kind", "contract").AddFile("file", "contract.pdf", []byte("%PDF-1.4"))
	if _, err := svc.Cases.Upload(context.Background(), "12", form); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if rec.path != "/cases/12/documents" {
		t.Errorf("path = %q, want /cases/12/documents", rec.path)
	}
	if !strings.HasPrefix(rec.contentType, "multipart/form-data; boundary=") {
		t.Errorf("content type = %q, want multipart/form-data", rec.contentType)
	}
	if !strings.Contains(rec.body, "%PDF-1.4") || !strings.Contains(rec.body, "contract") {
		t.Errorf("multipart body missing parts: %q", rec.body)
	}
}

func TestLookup(t *testing.T) {
	svc := NewService(client.NewClient("http://localhost"), nil)

	for _, name := range svc.Names() {
		c, err := svc.Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q) error = %v", name, err)
			continue
		}
		if c.Name != name {
			t.Errorf("Lookup(%q) got collection %q", name, c.Name)
		}
	}

	if got := len(svc.Names()); got != 7 {
		t.Errorf("Names() got %d collections, want 7", got)
	}
	if _, err := svc.Lookup("users"); err == nil {
		t.Error("Lookup(users) error = nil, want an error")
	}
}

func TestCustomRegistry(t *testing.T) {
	reg := schemas.NewRegistry()
	if err := reg.Register(schemas.Case, `{"type":"object","required":["id","reference"]}`); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	server, _ := newBackend(t, http.StatusOK, `{"id":1}`)
	svc := NewService(client.NewClient(server.URL), reg)

	if _, _, err := svc.Cases.Get(context.Background(), "1"); err == nil {
		t.Error("Get() error = nil, want a validation error from the custom schema")
	}
}

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ID
		wantErr bool
	}{
		{"number", `{"id":42}`, "42", false},
		{"string", `{"id":"c-42"}`, "c-42", false},
		{"null", `{"id":null}`, "", false},
		{"object", `{"id":{}}`, "", true},
		{"bool", `{"id":true}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Bank
			err := json.Unmarshal([]byte(tt.raw), &b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if b.ID != tt.want {
				t.Errorf("ID = %q, want %q", b.ID, tt.want)
			}
		})
	}
}

func TestDecodeAll(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"id":1,"total":"1250.00"}`),
		json.RawMessage(`{"id":"inv-2","total":99.5}`),
	}
	invoices, err := DecodeAll[Invoice](items)
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if invoices[0].Total.String() != "1250.00" || invoices[1].ID != "inv-2" {
		t.Errorf("DecodeAll() got %+v", invoices)
	}

	if _, err := Decode[Invoice](nil); !errors.Is(err, client.ErrNoResults) {
		t.Errorf("Decode(nil) error = %v, want ErrNoResults", err)
	}
}

// records that pass their schema must also decode
func TestValidRecordsDecode(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		raw    string
		decode func(json.RawMessage) (string, error)
		want   string
	}{
		{
			name:   "invoice with reference number",
			schema: schemas.Invoice,
			raw:    `{"id":7,"number":"INV-2026-001","total":"1,250.00"}`,
			decode: func(raw json.RawMessage) (string, error) {
				inv, err := Decode[Invoice](raw)
				return inv.Number.String() + " " + inv.Total.String(), err
			},
			want: "INV-2026-001 1,250.00",
		},
		{
			name:   "invoice with numeric number",
			schema: schemas.Invoice,
			raw:    `{"id":8,"number":1042,"total":99.5}`,
			decode: func(raw json.RawMessage) (string, error) {
				inv, err := Decode[Invoice](raw)
				return inv.Number.String() + " " + inv.Total.String(), err
			},
			want: "1042 99.5",
		},
		{
			name:   "invoice with null number",
			schema: schemas.Invoice,
			raw:    `{"id":9,"number":null}`,
			decode: func(raw json.RawMessage) (string, error) {
				inv, err := Decode[Invoice](raw)
				return inv.Number.String(), err
			},
			want: "",
		},
		{
			name:   "formatted loan amount",
			schema: schemas.MortgageApplication,
			raw:    `{"id":3,"loan_amount":"£250,000"}`,
			decode: func(raw json.RawMessage) (string, error) {
				app, err := Decode[MortgageApplication](raw)
				return app.LoanAmount.String(), err
			},
			want: "£250,000",
		},
		{
			name:   "numeric loan amount",
			schema: schemas.MortgageApplication,
			raw:    `{"id":4,"loan_amount":250000}`,
			decode: func(raw json.RawMessage) (string, error) {
				app, err := Decode[MortgageApplication](raw)
				return app.LoanAmount.String(), err
			},
			want: "250000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := json.RawMessage(tt.raw)
			if err := schemas.Validate(tt.schema, raw); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			got, err := tt.decode(raw)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() got = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextRejectsObjects(t *testing.T) {
	var inv Invoice
	if err := json.Unmarshal([]byte(`{"id":1,"number":{"x":1}}`), &inv); err == nil {
		t.Error("Unmarshal() accepted an object invoice number")
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantToken string
		wantMsg   string
	}{
		{"success", http.StatusOK, `{"token":"tok-1","user":{"id":3,"name":"Ada"}}`, false, "tok-1", ""},
		{"success without user", http.StatusOK, `{"token":"tok-2"}`, false, "tok-2", ""},
		{"missing token", http.StatusOK, `{"user":{"id":3}}`, true, "", ""},
		{"bad credentials", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, true, "", client.MsgUnauthorized},
		{"validation error", http.StatusBadRequest, `{"errors":{"email":["The email field is required."]}}`, true, "", "The email field is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, rec := newBackend(t, tt.status, tt.body)
			store := session.NewMemoryStore()
			c := client.NewClient(server.URL, client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			auth := NewAuth(c, store, nil)

			s, res, err := auth.Login(context.Background(), "ada@example.com", "secret")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Login() error = %v, wantErr %v", err, tt.wantErr)
			}
			if res.Error != tt.wantMsg {
				t.Errorf("result error = %q, want %q", res.Error, tt.wantMsg)
			}
			if rec.method != http.MethodPost || rec.path != LoginPath {
				t.Errorf("request = %s %s, want POST %s", rec.method, rec.path, LoginPath)
			}
			if rec.body != `{"email":"ada@example.com","password":"secret"}` {
				t.Errorf("request body = %q", rec.body)
			}

			stored, storeErr := store.Get()
			if tt.wantErr {
				if !errors.Is(storeErr, session.ErrNoSession) {
					t.Errorf("store after failed login = %+v, %v; want empty", stored, storeErr)
				}
				return
			}
			if s.Token != tt.wantToken || stored.Token != tt.wantToken {
				t.Errorf("token = %q, stored %q, want %q", s.Token, stored.Token, tt.wantToken)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	t.Run("with session", func(t *testing.T) {
		server, rec := newBackend(t, http.StatusNoContent, ``)
		store := session.NewMemoryStore()
		_ = store.Set(session.Session{Token: "tok-1"})
		auth := NewAuth(client.NewClient(server.URL), store, nil)

		res, err := auth.Logout(context.Background())
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if !res.OK {
			t.Errorf("Logout() result ok = false")
		}
		if rec.auth != "Bearer tok-1" || rec.path != LogoutPath {
			t.Errorf("request = %s auth %q, want %s with the stored token", rec.path, rec.auth, LogoutPath)
		}
		if _, err := store.Get(); !errors.Is(err, session.ErrNoSession) {
			t.Errorf("store not cleared: %v", err)
		}
	})

	t.Run("backend failure still clears", func(t *testing.T) {
		server, _ := newBackend(t, http.StatusInternalServerError, ``)
		store := session.NewMemoryStore()
		_ = store.Set(session.Session{Token: "tok-1"})
		auth := NewAuth(client.NewClient(server.URL), store, nil)

		res, err := auth.Logout(context.Background())
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if res.OK || res.Status != http.StatusInternalServerError {
			t.Errorf("result = %+v, want a 500 failure", res)
		}
		if _, err := store.Get(); !errors.Is(err, session.ErrNoSession) {
			t.Errorf("store not cleared: %v", err)
		}
	})

	t.Run("no session skips the request", func(t *testing.T) {
		server, rec := newBackend(t, http.StatusNoContent, ``)
		auth := NewAuth(client.NewClient(server.URL), session.NewMemoryStore(), nil)

		res, err := auth.Logout(context.Background())
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if res.Status != 0 || rec.method != "" {
			t.Errorf("Logout() sent a request without a session: %+v", rec)
		}
	})
}
