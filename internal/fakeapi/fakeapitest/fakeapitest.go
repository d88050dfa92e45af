// Package fakeapitest starts the fixture server on an httptest listener.
package fakeapitest

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkmn-dev/pkmn/internal/fakeapi"
)

// Start serves the embedded fixtures until the test ends.
func Start(tb testing.TB) (*httptest.Server, *fakeapi.Server) {
	return StartWithConfig(tb, fakeapi.Config{})
}

func StartWithConfig(tb testing.TB, cfg fakeapi.Config) (*httptest.Server, *fakeapi.Server) {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	store, err := fakeapi.LoadFixtures()
	if err != nil {
		tb.Fatalf("load fixtures: %v", err)
	}
	srv := fakeapi.New(store, cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	tb.Cleanup(ts.Close)
	return ts, srv
}
