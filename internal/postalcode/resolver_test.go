package postalcode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"arrume_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func viaCEPServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path != "/ws/01310100/json/" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func brasilAPIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cep/v1/01310100" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const viaCEPHit = `{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`

func TestResolve_ViaCEP(t *testing.T) {
	via := viaCEPServer(t, viaCEPHit, nil)
	r := NewResolver(time.Second, nil, nil, logger.Discard(), NewViaCEP(via.URL, nil), NewBrasilAPI("http://127.0.0.1:1", nil))

	addr, ok := r.Resolve(context.Background(), "01310-100")
	if !ok {
		t.Fatalf("expected address")
	}
	if addr.City != "São Paulo" || addr.Region != "SP" || addr.Neighborhood != "Bela Vista" || addr.Street != "Avenida Paulista" {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestResolve_ViaCEPMissFallsBackToBrasilAPI(t *testing.T) {
	via := viaCEPServer(t, `{"erro": true}`, nil)
	brasil := brasilAPIServer(t, http.StatusOK, `{"cep":"01310100","state":"sp","city":"São Paulo","neighborhood":"Bela Vista","street":"Avenida Paulista"}`)
	r := NewResolver(time.Second, nil, nil, logger.Discard(), NewViaCEP(via.URL, nil), NewBrasilAPI(brasil.URL, nil))

	addr, ok := r.Resolve(context.Background(), "01310100")
	if !ok || addr.City != "São Paulo" || addr.Region != "SP" {
		t.Fatalf("unexpected result %+v ok=%v", addr, ok)
	}
}

func TestResolve_AllMiss(t *testing.T) {
	via := viaCEPServer(t, `{"erro": "true"}`, nil)
	brasil := brasilAPIServer(t, http.StatusNotFound, `{"name":"CepPromiseError","errors":[{"message":"CEP NAO ENCONTRADO"}]}`)
	r := NewResolver(time.Second, nil, nil, logger.Discard(), NewViaCEP(via.URL, nil), NewBrasilAPI(brasil.URL, nil))

	if _, ok := r.Resolve(context.Background(), "01310100"); ok {
		t.Fatalf("expected miss")
	}
}

func TestResolve_InvalidCEPSkipsLookups(t *testing.T) {
	var hits atomic.Int32
	via := viaCEPServer(t, viaCEPHit, &hits)
	r := NewResolver(time.Second, nil, nil, logger.Discard(), NewViaCEP(via.URL, nil))

	if _, ok := r.Resolve(context.Background(), "0131"); ok {
		t.Fatalf("expected miss for short cep")
	}
	if hits.Load() != 0 {
		t.Fatalf("lookup should not be called for invalid cep")
	}
}

func TestResolve_UsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var hits atomic.Int32
	via := viaCEPServer(t, viaCEPHit, &hits)
	r := NewResolver(time.Second, NewRedisCache(client, time.Hour), nil, logger.Discard(), NewViaCEP(via.URL, nil))

	for i := 0; i < 2; i++ {
		addr, ok := r.Resolve(context.Background(), "01310100")
		if !ok || addr.City != "São Paulo" {
			t.Fatalf("unexpected result %+v ok=%v", addr, ok)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", hits.Load())
	}
	if !mr.Exists("postalcode:01310100") {
		t.Fatalf("expected cache entry")
	}
	if ttl := mr.TTL("postalcode:01310100"); ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestResolve_CacheOutageFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	via := viaCEPServer(t, viaCEPHit, nil)
	r := NewResolver(time.Second, NewRedisCache(client, time.Hour), nil, logger.Discard(), NewViaCEP(via.URL, nil))

	if addr, ok := r.Resolve(context.Background(), "01310100"); !ok || addr.Region != "SP" {
		t.Fatalf("expected lookup to succeed without cache, got %+v ok=%v", addr, ok)
	}
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder("01310100"); got != "CEP-01310100" {
		t.Fatalf("unexpected placeholder %q", got)
	}
}
