package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"signup/internal/platform/config"
	"signup/internal/signup/session"
	"signup/internal/signup/store/account"
	"signup/pkg/testutil"
)

func TestRouter(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := session.NewRegistry(account.NewInMemory())

	testutil.Given(t, "the HTTP router with a healthy backend", func(t *testing.T) {
		router := newRouter(registry, log, func(context.Context) error { return nil })

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it reports ok", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
			})
		})

		testutil.When(t, "opening a signup session", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/signup/sessions"))

			testutil.Then(t, "it is created and tagged with a request id", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
			})
		})

		testutil.When(t, "calling GET /metrics", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

			testutil.Then(t, "it serves prometheus metrics", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
			})
		})
	})

	testutil.Given(t, "a backend that fails its ping", func(t *testing.T) {
		router := newRouter(registry, log, func(context.Context) error { return errors.New("down") })

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it reports unavailable", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestOpenBackend(t *testing.T) {
	t.Run("memory store needs no connection", func(t *testing.T) {
		b, err := openBackend(context.Background(), configWithStore("memory"))
		require.NoError(t, err)
		require.NoError(t, b.ping(context.Background()))
		b.close()
	})

	t.Run("redis store requires a URL", func(t *testing.T) {
		_, err := openBackend(context.Background(), configWithStore("redis"))
		require.Error(t, err)
	})

	t.Run("unknown store is rejected", func(t *testing.T) {
		_, err := openBackend(context.Background(), configWithStore("dynamo"))
		require.Error(t, err)
	})
}

func configWithStore(store string) config.Server {
	cfg := config.Server{Store: store}
	return cfg
}
