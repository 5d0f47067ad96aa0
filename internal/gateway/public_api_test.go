package gateway_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"CatalogPlugin/internal/cart"
	"CatalogPlugin/internal/catalog"
	"CatalogPlugin/internal/gateway"
)

func newCatalogTS(t *testing.T) *httptest.Server {
	t.Helper()

	s := catalog.NewServer(catalog.NewStore(), zap.NewNop(), "https://shop.example.com")

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "catalog",
	})

	return httptest.NewServer(h)
}

func newCartAPITS(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cart":{"_id":"cart-1"}}`))
	}))
}

func newCartTS(t *testing.T, catalogURL, cartAPIURL string) *httptest.Server {
	t.Helper()

	products := cart.NewProductClient(catalogURL)
	s := &cart.Server{
		Service: &cart.Service{
			Products: products,
			Cart:     cart.NewPlatformCart(cartAPIURL, "", 0, 0),
		},
		Upstream: products,
	}

	h := cart.NewHandler(s, cart.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "cart",
	})

	return httptest.NewServer(h)
}

func newGatewayTS(t *testing.T, catalogURL, cartURL string, cartLimit int) *httptest.Server {
	t.Helper()

	h, err := gateway.NewHandler(
		gateway.Deps{
			CatalogURL:      catalogURL,
			CartURL:         cartURL,
			CartLimitPerMin: cartLimit,
		},
		gateway.HTTPDeps{
			Log:     zap.NewNop(),
			Service: "gateway",
			// Registry: nil
		},
	)
	if err != nil {
		t.Fatalf("gateway.NewHandler: %v", err)
	}

	return httptest.NewServer(h)
}

type stack struct {
	gw        *httptest.Server
	cartCalls *atomic.Int32
}

func newStack(t *testing.T, cartLimit int) stack {
	t.Helper()

	calls := &atomic.Int32{}

	catalogTS := newCatalogTS(t)
	t.Cleanup(catalogTS.Close)

	apiTS := newCartAPITS(t, calls)
	t.Cleanup(apiTS.Close)

	cartTS := newCartTS(t, catalogTS.URL, apiTS.URL)
	t.Cleanup(cartTS.Close)

	gwTS := newGatewayTS(t, catalogTS.URL, cartTS.URL, cartLimit)
	t.Cleanup(gwTS.Close)

	return stack{gw: gwTS, cartCalls: calls}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestGateway_PublicAPI_HappyPath(t *testing.T) {
	st := newStack(t, 0)
	c := &http.Client{}

	{
		resp, raw := doJSON(t, c, http.MethodGet, st.gw.URL+"/readyz", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("readyz status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, st.gw.URL+"/v1/catalog/items", map[string]any{
			"catalogReferences": []map[string]any{
				{"catalogReference": map[string]any{"catalogItemId": "item_999"}, "quantity": 1},
				{
					"catalogReference": map[string]any{
						"catalogItemId": "item_001",
						"options":       map[string]any{"variantId": "Red-M"},
					},
					"quantity": 2,
				},
			},
			"currency": "USD",
		}, nil)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("catalog items status=%d body=%s", resp.StatusCode, string(raw))
		}

		var out struct {
			CatalogItems []struct {
				Data catalog.Record `json:"data"`
			} `json:"catalogItems"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
		if len(out.CatalogItems) != 1 {
			t.Fatalf("catalogItems=%d", len(out.CatalogItems))
		}
		if d := out.CatalogItems[0].Data; d.QuantityAvailable != 30 || d.PhysicalProperties.SKU != "TSH-RED-M" {
			t.Fatalf("data=%+v", d)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, st.gw.URL+"/cart/add", map[string]any{
			"externalProductId": "item_005",
			"quantity":          1,
		}, nil)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add to cart status=%d body=%s", resp.StatusCode, string(raw))
		}

		var res cart.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
		if !res.Success || res.CartItemID != "cart-1" {
			t.Fatalf("result=%+v", res)
		}
		if st.cartCalls.Load() != 1 {
			t.Fatalf("cart API calls=%d", st.cartCalls.Load())
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, st.gw.URL+"/products/item_005/inventory", map[string]any{"delta": -1}, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("adjust status=%d body=%s", resp.StatusCode, string(raw))
		}

		resp, raw = doJSON(t, c, http.MethodGet, st.gw.URL+"/products/item_005", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get status=%d body=%s", resp.StatusCode, string(raw))
		}

		var got catalog.Item
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
		if got.Inventory != 44 {
			t.Fatalf("inventory=%d", got.Inventory)
		}
	}
}

func TestGateway_Install(t *testing.T) {
	st := newStack(t, 0)
	c := &http.Client{}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		var body any
		if method == http.MethodPost {
			body = map[string]any{"instanceId": "abc"}
		}

		resp, raw := doJSON(t, c, method, st.gw.URL+"/install?token=t0k", body, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", method, resp.StatusCode)
		}

		var out struct {
			Success        bool   `json:"success"`
			InstallationID string `json:"installationId"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
		if !out.Success || out.InstallationID == "" {
			t.Fatalf("%s body=%s", method, string(raw))
		}
	}
}

func TestGateway_CartRateLimited(t *testing.T) {
	st := newStack(t, 2)
	c := &http.Client{}

	body := map[string]any{"externalProductId": "item_003", "quantity": 1}

	for i := 0; i < 2; i++ {
		resp, raw := doJSON(t, c, http.MethodPost, st.gw.URL+"/cart/add", body, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status=%d body=%s", i, resp.StatusCode, string(raw))
		}
	}

	resp, _ := doJSON(t, c, http.MethodPost, st.gw.URL+"/cart/add", body, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	resp, _ = doJSON(t, c, http.MethodGet, st.gw.URL+"/products", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("catalog limited too: status=%d", resp.StatusCode)
	}
}

func TestGateway_UpstreamDown(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	gw := newGatewayTS(t, url, url, 0)
	t.Cleanup(gw.Close)

	c := &http.Client{}

	resp, _ := doJSON(t, c, http.MethodGet, gw.URL+"/products", nil, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("proxy status=%d", resp.StatusCode)
	}

	resp, _ = doJSON(t, c, http.MethodGet, gw.URL+"/readyz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}
