package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsbrief.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
llm:
  api_key: test-key
`))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
		assert.Equal(t, "https://news.google.com/rss/search", cfg.Feed.BaseURL)
		assert.Equal(t, "ko", cfg.Feed.Language)
		assert.Equal(t, "KR", cfg.Feed.Country)
		assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.001)
		assert.Equal(t, 500, cfg.LLM.MaxTokens)
		assert.Equal(t, "https://api.notion.com", cfg.Notion.BaseURL)
		assert.Equal(t, "Asia/Seoul", cfg.Scheduler.Timezone)
		assert.Equal(t, "schedules.json", cfg.Storage.SchedulesFile)
		assert.Equal(t, "schedule_logs.json", cfg.Storage.ExecLogFile)
		assert.Equal(t, "chat_history.json", cfg.Storage.HistoryFile)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
server:
  listen: ":9090"
  timeout: 45s
feed:
  language: en
  country: US
llm:
  api_key: test-key
  model: gpt-4o
  temperature: 0.7
scheduler:
  timezone: UTC
`))
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
		assert.Equal(t, "en", cfg.Feed.Language)
		assert.Equal(t, "US", cfg.Feed.Country)
		assert.Equal(t, "gpt-4o", cfg.LLM.Model)
		assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
		assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	})

	t.Run("environment variables expanded", func(t *testing.T) {
		t.Setenv("TEST_LLM_KEY", "secret-from-env")
		t.Setenv("TEST_NOTION_KEY", "notion-from-env")

		cfg, err := Load(writeConfig(t, `
llm:
  api_key: ${TEST_LLM_KEY}
notion:
  api_key: ${TEST_NOTION_KEY}
  database_id: db123
`))
		require.NoError(t, err)
		assert.Equal(t, "secret-from-env", cfg.LLM.APIKey)
		assert.Equal(t, "notion-from-env", cfg.Notion.APIKey)
		assert.True(t, cfg.Notion.Enabled())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "llm: [broken"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("missing llm key rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
feed:
  language: en
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.api_key is required")
	})

	t.Run("temperature out of range rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
llm:
  api_key: k
  temperature: 3.5
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "temperature")
	})

	t.Run("bad timezone rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
llm:
  api_key: k
scheduler:
  timezone: Mars/Olympus
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid scheduler timezone")
	})
}

func TestNotionConfig_Enabled(t *testing.T) {
	assert.False(t, NotionConfig{}.Enabled())
	assert.False(t, NotionConfig{APIKey: "k"}.Enabled())
	assert.False(t, NotionConfig{DatabaseID: "db"}.Enabled())
	assert.True(t, NotionConfig{APIKey: "k", DatabaseID: "db"}.Enabled())
}

func TestGetServerConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  listen: ":7070"
  timeout: 10s
llm:
  api_key: k
`))
	require.NoError(t, err)

	listen, timeout := cfg.GetServerConfig()
	assert.Equal(t, ":7070", listen)
	assert.Equal(t, 10*time.Second, timeout)
}
