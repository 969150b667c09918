package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	view     cartsvc.View
	added    []cartsvc.LineRef
	setCalls []int
	err      error
}

func (s *stubCartService) Add(ctx context.Context, userID uuid.UUID, ref cartsvc.LineRef) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, ref)
	return nil
}

func (s *stubCartService) SetQuantity(ctx context.Context, userID uuid.UUID, ref cartsvc.LineRef, quantity int) error {
	if s.err != nil {
		return s.err
	}
	s.setCalls = append(s.setCalls, quantity)
	return nil
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (cartsvc.View, error) {
	return s.view, nil
}

func (s *stubCartService) Lines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return nil, nil
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	return req
}

func TestCartAddItemSuccess(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: cartsvc.View{productID.String(): {"black": {"m": 1}}}}
	handler := CartAddItem(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"variant":"black","size":"m"}`, productID)
	req := authedRequest(http.MethodPost, "/api/v1/cart/items", body)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if len(svc.added) != 1 || svc.added[0].ProductID != productID {
		t.Fatalf("unexpected add calls: %+v", svc.added)
	}

	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data[productID.String()]["black"]["m"] != 1 {
		t.Fatalf("unexpected view: %+v", envelope.Data)
	}
}

func TestCartAddItemRequiresAuth(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemRejectsUnknownFields(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)
	req := authedRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"x","size":"m","sneaky":true}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartSetQuantityPassesZeroThrough(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: cartsvc.View{}}
	handler := CartSetQuantity(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"variant":"black","size":"m","quantity":0}`, productID)
	req := authedRequest(http.MethodPut, "/api/v1/cart/items", body)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if len(svc.setCalls) != 1 || svc.setCalls[0] != 0 {
		t.Fatalf("expected quantity 0 forwarded, got %v", svc.setCalls)
	}
}

func TestCartSetQuantityMissingLine(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")}
	handler := CartSetQuantity(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"size":"m","quantity":2}`, uuid.New())
	req := authedRequest(http.MethodPut, "/api/v1/cart/items", body)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartFetchReturnsView(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: cartsvc.View{productID.String(): {"": {"l": 3}}}}
	handler := CartFetch(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/cart", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data[productID.String()][""]["l"] != 3 {
		t.Fatalf("unexpected view: %+v", envelope.Data)
	}
}
