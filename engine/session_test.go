package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSessionInfo(t *testing.T) {
	info := DefaultSessionInfo()

	assert.NoError(t, info.Validate())
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, time.Now().Format("2006-01-02"), info.Date)
	assert.Equal(t, info.Date+"_FFE21", info.FolderName())
	assert.Equal(t, "s", info.Sync)
}

func TestSessionInfo_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*SessionInfo)
		want   string
	}{
		{"missing subject", func(s *SessionInfo) { s.SubjectCode = " " }, "subject code"},
		{"bad date", func(s *SessionInfo) { s.Date = "09/18/19" }, "invalid date"},
		{"bad age", func(s *SessionInfo) { s.Age = "old" }, "invalid age"},
		{"bad gender", func(s *SessionInfo) { s.Gender = "other" }, "invalid gender"},
		{"zero TR", func(s *SessionInfo) { s.TR = "0" }, "invalid TR"},
		{"negative volumes", func(s *SessionInfo) { s.Volumes = "-1" }, "invalid volumes"},
		{"bad skip", func(s *SessionInfo) { s.Skip = "x" }, "invalid skip"},
		{"empty sync", func(s *SessionInfo) { s.Sync = "" }, "sync key"},
		{"bad mode", func(s *SessionInfo) { s.Mode = "live" }, "invalid mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DefaultSessionInfo()
			tt.modify(info)
			assert.ErrorContains(t, info.Validate(), tt.want)
		})
	}
}

func TestSessionInfo_TRDuration(t *testing.T) {
	info := DefaultSessionInfo()
	info.TR = "2.5"

	tr, err := info.TRDuration()
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, tr)
}

func TestCreateOutFolder(t *testing.T) {
	base := filepath.Join(t.TempDir(), "2019-09-18_FFE21")

	first, err := CreateOutFolder(base)
	require.NoError(t, err)
	assert.Equal(t, base, first)

	second, err := CreateOutFolder(base)
	require.NoError(t, err)
	assert.Equal(t, base+"_1", second)

	third, err := CreateOutFolder(base)
	require.NoError(t, err)
	assert.Equal(t, base+"_2", third)

	for _, dir := range []string{first, second, third} {
		st, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, st.IsDir())
	}
}

func TestSessionCache_RestoresOperatorFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionCacheFile)

	saved := DefaultSessionInfo()
	saved.Operator = "JD"
	saved.SubjectCode = "P07"
	saved.TR = "3.0"
	saved.Mode = ModeTest
	require.NoError(t, saved.SaveSessionCache(path))

	loaded := DefaultSessionInfo()
	require.NoError(t, loaded.LoadSessionCache(path))
	assert.Equal(t, "JD", loaded.Operator)
	assert.Equal(t, "P07", loaded.SubjectCode)
	assert.Equal(t, "3.0", loaded.TR)
	assert.Equal(t, ModeTest, loaded.Mode)
	assert.NotEqual(t, saved.ID, loaded.ID)
}

func TestSessionCache_MissingFile(t *testing.T) {
	info := DefaultSessionInfo()
	assert.NoError(t, info.LoadSessionCache(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Equal(t, "MS", info.Operator)
}
