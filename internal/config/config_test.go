package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets every recognized variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	require.Equal(t, 150, cfg.OpenAIMaxTokens)
	require.Equal(t, 10*time.Second, cfg.OpenAITimeout)
	require.Equal(t, "https://example.com/path-to-your-image.jpg", cfg.ImageURL)
	require.Equal(t, cfg.ImageURL, cfg.PreviewImageURL)
	require.Equal(t, "ผลการวิเคราะห์: รายงานสรุปของคุณเสร็จสมบูรณ์แล้ว", cfg.SummaryText)
	require.ElementsMatch(t, []string{"LINE_CHANNEL_ACCESS_TOKEN", "LINE_CHANNEL_SECRET", "OPENAI_API_KEY"}, cfg.MissingCredentials())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("LINE_CHANNEL_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-1")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_MAX_TOKENS", "64")
	t.Setenv("OPENAI_TIMEOUT", "3s")
	t.Setenv("IMAGE_URL", "https://cdn.example/full.jpg")
	t.Setenv("PARAM_PREFIX", "/line-bot/")
	t.Setenv("EVENT_TABLE", "events")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "token", cfg.LineChannelAccessToken)
	require.Equal(t, "secret", cfg.LineChannelSecret)
	require.Equal(t, "sk-1", cfg.OpenAIAPIKey)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, 64, cfg.OpenAIMaxTokens)
	require.Equal(t, 3*time.Second, cfg.OpenAITimeout)
	require.Equal(t, "https://cdn.example/full.jpg", cfg.PreviewImageURL)
	require.Equal(t, "/line-bot", cfg.ParamPrefix)
	require.Equal(t, "events", cfg.EventTable)
	require.Empty(t, cfg.MissingCredentials())
}

func TestLoad_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LINE_CHANNEL_SECRET=from-file\nOPENAI_API_KEY=sk-file\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Cleanup(func() { _ = os.Unsetenv("LINE_CHANNEL_SECRET") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.LineChannelSecret)
	require.Equal(t, "sk-env", cfg.OpenAIAPIKey)
}

func TestLoad_MissingDotenvIsIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_MAX_TOKENS", "0")
	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_MAX_TOKENS")

	clearEnv(t)
	t.Setenv("OPENAI_TIMEOUT", "not-a-duration")
	_, err = Load("")
	require.Error(t, err)
}

type fakeParams struct {
	values    map[string]string
	err       error
	requested []string
}

func (f *fakeParams) GetParameters(_ context.Context, names []string) (map[string]string, error) {
	f.requested = names
	return f.values, f.err
}

func TestResolveCredentials_FillsOnlyMissing(t *testing.T) {
	cfg := Default()
	cfg.ParamPrefix = "/bot"
	cfg.OpenAIAPIKey = "sk-env"
	params := &fakeParams{values: map[string]string{
		"/bot/line-channel-access-token": " token-ssm ",
		"/bot/line-channel-secret":       "secret-ssm",
		"/bot/openai-api-key":            "sk-ssm",
	}}

	require.NoError(t, cfg.ResolveCredentials(context.Background(), params))
	require.Equal(t, []string{"/bot/line-channel-access-token", "/bot/line-channel-secret"}, params.requested)
	require.Equal(t, "token-ssm", cfg.LineChannelAccessToken)
	require.Equal(t, "secret-ssm", cfg.LineChannelSecret)
	require.Equal(t, "sk-env", cfg.OpenAIAPIKey)
}

func TestResolveCredentials_NoPrefixIsNoop(t *testing.T) {
	cfg := Default()
	params := &fakeParams{}
	require.NoError(t, cfg.ResolveCredentials(context.Background(), params))
	require.Nil(t, params.requested)
}

func TestResolveCredentials_NothingMissing(t *testing.T) {
	cfg := Default()
	cfg.ParamPrefix = "/bot"
	cfg.LineChannelAccessToken, cfg.LineChannelSecret, cfg.OpenAIAPIKey = "a", "b", "c"
	params := &fakeParams{}
	require.NoError(t, cfg.ResolveCredentials(context.Background(), params))
	require.Nil(t, params.requested)
}

func TestResolveCredentials_Errors(t *testing.T) {
	cfg := Default()
	cfg.ParamPrefix = "/bot"
	require.Error(t, cfg.ResolveCredentials(context.Background(), nil))

	err := cfg.ResolveCredentials(context.Background(), &fakeParams{err: errors.New("ssm unavailable")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}
