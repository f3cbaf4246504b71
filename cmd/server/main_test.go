package main

import (
	"context"
	"net"
	"testing"

	"catalog/internal/config"
	"catalog/internal/server"
	"catalog/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newServer(t *testing.T) (*server.Server, *gorm.DB) {
	t.Helper()
	cfg := &config.Config{Env: "test", AuthJWTSecret: "secret", ImageMaxUploadSizeMB: 5}
	db := testutil.OpenSQLite(t)
	srv, err := server.NewServerWithDeps(cfg, db, nil, testutil.NewMediaHostStub())
	require.NoError(t, err)
	return srv, db
}

func TestServeReleasesDependenciesWhenListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })

	srv, db := newServer(t)
	tracingFlushed := false
	flush := func(context.Context) error {
		tracingFlushed = true
		return nil
	}

	err = serve(context.Background(), srv.NewApp(), taken.Addr().String(), srv, flush)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")

	assert.True(t, tracingFlushed)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "database should be closed")
}
