package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RetardedCafeLab/term-bot/internal/catalog"
	"github.com/RetardedCafeLab/term-bot/internal/config"
	authsvc "github.com/RetardedCafeLab/term-bot/internal/services/auth"
	invoicesvc "github.com/RetardedCafeLab/term-bot/internal/services/invoices"
)

type linkCreatorStub struct {
	link string
	err  error
}

func (s linkCreatorStub) CreateInvoiceLink(context.Context, invoicesvc.InvoiceSpec) (string, error) {
	return s.link, s.err
}

func invoiceHandlerFixture(links invoicesvc.LinkCreator) *InvoiceHandler {
	cat := catalog.New(
		[]config.TierConfig{{ID: "monthly", Name: "Monthly", StarsPrice: 1000, DurationDays: 30}},
		nil,
	)
	return NewInvoiceHandler(invoicesvc.NewService(cat, links, false, nil))
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: 42,
		Role:   authsvc.RoleUser,
	}))
}

func TestTermInvoiceReturnsLink(t *testing.T) {
	h := invoiceHandlerFixture(linkCreatorStub{link: "https://t.me/invoice/abc"})

	body, _ := json.Marshal(map[string]string{"tier_id": "monthly"})
	rr := httptest.NewRecorder()
	h.Term(rr, authedRequest(http.MethodPost, "/api/v1/invoices/term", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload struct {
		InvoiceLink string `json:"invoice_link"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.InvoiceLink != "https://t.me/invoice/abc" {
		t.Fatalf("unexpected link: %q", payload.InvoiceLink)
	}
}

func TestTermInvoiceRequiresAuth(t *testing.T) {
	h := invoiceHandlerFixture(linkCreatorStub{link: "x"})

	body, _ := json.Marshal(map[string]string{"tier_id": "monthly"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/term", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Term(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestTermInvoiceUnknownTier(t *testing.T) {
	h := invoiceHandlerFixture(linkCreatorStub{link: "x"})

	body, _ := json.Marshal(map[string]string{"tier_id": "lifetime"})
	rr := httptest.NewRecorder()
	h.Term(rr, authedRequest(http.MethodPost, "/api/v1/invoices/term", body))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "PRODUCT_NOT_FOUND" {
		t.Fatalf("unexpected error code: %q", payload.Code)
	}
}

func TestChannelInvoiceRejectsEmptyBody(t *testing.T) {
	h := invoiceHandlerFixture(linkCreatorStub{link: "x"})

	rr := httptest.NewRecorder()
	h.Channel(rr, authedRequest(http.MethodPost, "/api/v1/invoices/channel", []byte(`{}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
