package postalcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const userAgent = "Arrume/1.0"

// ErrNotFound is returned when a lookup service does not know the CEP.
var ErrNotFound = errors.New("postal code not found")

// ViaCEP queries viacep.com.br.
type ViaCEP struct {
	baseURL string
	client  *http.Client
}

// NewViaCEP creates a ViaCEP lookup. A nil client uses http.DefaultClient.
func NewViaCEP(baseURL string, client *http.Client) *ViaCEP {
	if client == nil {
		client = http.DefaultClient
	}
	return &ViaCEP{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (v *ViaCEP) Name() string { return "viacep" }

type viaCEPResponse struct {
	Erro       any    `json:"erro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Bairro     string `json:"bairro"`
	Logradouro string `json:"logradouro"`
}

// Lookup resolves cep, which must already be 8 digits.
func (v *ViaCEP) Lookup(ctx context.Context, cep string) (Address, error) {
	var payload viaCEPResponse
	if err := getJSON(ctx, v.client, fmt.Sprintf("%s/ws/%s/json/", v.baseURL, cep), &payload); err != nil {
		return Address{}, err
	}
	if isTruthy(payload.Erro) {
		return Address{}, ErrNotFound
	}
	return Address{
		City:         payload.Localidade,
		Region:       payload.UF,
		Neighborhood: payload.Bairro,
		Street:       payload.Logradouro,
	}, nil
}

// BrasilAPI queries brasilapi.com.br.
type BrasilAPI struct {
	baseURL string
	client  *http.Client
}

// NewBrasilAPI creates a BrasilAPI lookup. A nil client uses http.DefaultClient.
func NewBrasilAPI(baseURL string, client *http.Client) *BrasilAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &BrasilAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (b *BrasilAPI) Name() string { return "brasilapi" }

type brasilAPIResponse struct {
	Errors       json.RawMessage `json:"errors"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	Neighborhood string          `json:"neighborhood"`
	Street       string          `json:"street"`
}

// Lookup resolves cep, which must already be 8 digits.
func (b *BrasilAPI) Lookup(ctx context.Context, cep string) (Address, error) {
	var payload brasilAPIResponse
	if err := getJSON(ctx, b.client, fmt.Sprintf("%s/api/cep/v1/%s", b.baseURL, cep), &payload); err != nil {
		return Address{}, err
	}
	if len(payload.Errors) > 0 && string(payload.Errors) != "null" {
		return Address{}, ErrNotFound
	}
	return Address{
		City:         payload.City,
		Region:       payload.State,
		Neighborhood: payload.Neighborhood,
		Street:       payload.Street,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
