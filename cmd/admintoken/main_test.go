package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"alcovian/internal/config"
	"alcovian/internal/service"

	"github.com/stretchr/testify/require"
)

func restoreGlobals() {
	loadConfig = func() (*config.Config, error) { return config.Load() }
	exitFunc = func(int) {}
}

func TestRun(t *testing.T) {
	t.Cleanup(restoreGlobals)
	loadConfig = func() (*config.Config, error) { return &config.Config{AdminJWTSecret: "s"}, nil }

	var out bytes.Buffer
	require.NoError(t, run([]string{"-sub", "user_1", "-email", "a@b.com", "-ttl", "5m"}, &out))

	claims, err := service.VerifyAccessToken("s", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "user_1", claims.Subject)
	require.Equal(t, "a@b.com", claims.Email)
	require.True(t, claims.IsAdmin)
}

func TestRunErrors(t *testing.T) {
	t.Cleanup(restoreGlobals)
	var out bytes.Buffer

	require.ErrorContains(t, run(nil, &out), "-sub")
	require.ErrorContains(t, run([]string{"-sub", "u", "-ttl", "0s"}, &out), "-ttl")
	require.Error(t, run([]string{"-nope"}, &out))

	loadConfig = func() (*config.Config, error) { return nil, errors.New("env") }
	require.ErrorContains(t, run([]string{"-sub", "u"}, &out), "config")

	loadConfig = func() (*config.Config, error) { return &config.Config{}, nil }
	require.ErrorIs(t, run([]string{"-sub", "u"}, &out), service.ErrMissingSecret)
}
