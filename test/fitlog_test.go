package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/entries"
	"github.com/2beens/fitlog/internal/formcheck"
	"github.com/2beens/fitlog/internal/prefs"
)

const authTokenHeader = "X-FITLOG-TOKEN"

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *IntegrationTestSuite) doRegister(ctx context.Context, username, password string) *http.Response {
	creds := credentials{Username: username, Password: password}
	credsJson, err := json.Marshal(creds)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/a/register", serverEndpoint), bytes.NewReader(credsJson))
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.T(), err)
	return resp
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context, username, password string) string {
	creds := credentials{Username: username, Password: password}
	credsJson, err := json.Marshal(creds)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/a/login", serverEndpoint), bytes.NewReader(credsJson))
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(s.T(), json.Unmarshal(respBytes, &loginResp))
	require.NotEmpty(s.T(), loginResp.Token)

	return loginResp.Token
}

// registerAndLogin creates a fresh user and returns its session token,
// so tests do not depend on each other's data
func (s *IntegrationTestSuite) registerAndLogin(ctx context.Context, username string) string {
	resp := s.doRegister(ctx, username, testPassword)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.NoError(s.T(), resp.Body.Close())
	return s.doLogin(ctx, username, testPassword)
}

func (s *IntegrationTestSuite) apiRequest(ctx context.Context, method, path, token string, body any) *http.Response {
	var bodyReader io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(s.T(), err)
		bodyReader = bytes.NewReader(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, bodyReader)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(authTokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.T(), err)
	return resp
}

func decodeResponse[T any](s *IntegrationTestSuite, resp *http.Response) T {
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var result T
	require.NoError(s.T(), json.Unmarshal(respBytes, &result))
	return result
}

func (s *IntegrationTestSuite) TestRoot() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := s.apiRequest(ctx, "GET", "/", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "I'm OK, thanks ;)", string(respBytes))

	resp = s.apiRequest(ctx, "GET", "/version", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	versionBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "test-version-info", string(versionBytes))
}

func (s *IntegrationTestSuite) TestAuth() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := s.doRegister(ctx, testUsername, testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	registerResp := decodeResponse[struct {
		Registered bool `json:"registered"`
		ID         int  `json:"id"`
	}](s, resp)
	assert.True(t, registerResp.Registered)
	assert.True(t, registerResp.ID > 0)

	// the user really landed in the db
	var storedUsername string
	require.NoError(t, s.DB.QueryRow(
		"SELECT username FROM users WHERE id = $1", registerResp.ID,
	).Scan(&storedUsername))
	assert.Equal(t, testUsername, storedUsername)

	t.Run("register taken username", func(t *testing.T) {
		resp := s.doRegister(ctx, testUsername, "other-password")
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "error, username taken", strings.TrimSpace(string(respBytes)))
	})

	t.Run("login wrong credentials", func(t *testing.T) {
		creds := credentials{Username: testUsername, Password: "bad-password"}
		credsJson, err := json.Marshal(creds)
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/a/login", serverEndpoint), bytes.NewReader(credsJson))
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "error, wrong credentials", strings.TrimSpace(string(respBytes)))
	})

	t.Run("login then logout", func(t *testing.T) {
		token := s.doLogin(ctx, testUsername, testPassword)

		// token works
		resp := s.apiRequest(ctx, "GET", "/api/pushups", token, nil)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/a/logout", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(authTokenHeader, token)
		logoutResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, logoutResp.Body.Close())
		require.Equal(t, http.StatusOK, logoutResp.StatusCode)

		// token no longer works
		resp = s.apiRequest(ctx, "GET", "/api/pushups", token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *IntegrationTestSuite) TestPushups() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.registerAndLogin(ctx, gofakeit.Username())

	t.Run("unauthorized without token", func(t *testing.T) {
		resp := s.apiRequest(ctx, "GET", "/api/pushups", "", nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = s.apiRequest(ctx, "POST", "/api/pushups", "", map[string]any{"count": 10})
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	jan1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	resp := s.apiRequest(ctx, "POST", "/api/pushups", token, map[string]any{"count": 5, "date": jan1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	added := decodeResponse[entries.PushupEntry](s, resp)
	assert.True(t, added.ID > 0)
	assert.Equal(t, 5, added.Count)

	resp = s.apiRequest(ctx, "POST", "/api/pushups", token, map[string]any{"count": 3, "date": jan1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
	resp = s.apiRequest(ctx, "POST", "/api/pushups", token, map[string]any{"count": 2, "date": jan2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	t.Run("add invalid count", func(t *testing.T) {
		resp := s.apiRequest(ctx, "POST", "/api/pushups", token, map[string]any{"count": 0})
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		resp := s.apiRequest(ctx, "GET", "/api/pushups", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listed := decodeResponse[[]entries.PushupEntry](s, resp)
		require.Len(t, listed, 3)
		// newest first
		assert.Equal(t, 2, listed[0].Count)
	})

	t.Run("stats daily", func(t *testing.T) {
		resp := s.apiRequest(ctx, "GET", "/api/pushups/stats/daily", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		statsPoints := decodeResponse[[]entries.PushupStatsPoint](s, resp)
		require.Len(t, statsPoints, 2)
		assert.Equal(t, entries.PushupStatsPoint{Date: "01/01", Count: 8}, statsPoints[0])
		assert.Equal(t, entries.PushupStatsPoint{Date: "01/02", Count: 2}, statsPoints[1])
	})

	t.Run("stats unknown period", func(t *testing.T) {
		resp := s.apiRequest(ctx, "GET", "/api/pushups/stats/hourly", token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		resp := s.apiRequest(ctx, "DELETE", fmt.Sprintf("/api/pushups/%d", added.ID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		deleteResp := decodeResponse[entries.DeleteEntryResponse](s, resp)
		assert.True(t, deleteResp.Success)

		resp = s.apiRequest(ctx, "GET", "/api/pushups", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listed := decodeResponse[[]entries.PushupEntry](s, resp)
		assert.Len(t, listed, 2)

		// deleting a non-existent entry is still a success
		resp = s.apiRequest(ctx, "DELETE", "/api/pushups/999999", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		deleteResp = decodeResponse[entries.DeleteEntryResponse](s, resp)
		assert.True(t, deleteResp.Success)
	})

	t.Run("entries not visible to another user", func(t *testing.T) {
		otherToken := s.registerAndLogin(ctx, gofakeit.Username())
		resp := s.apiRequest(ctx, "GET", "/api/pushups", otherToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listed := decodeResponse[[]entries.PushupEntry](s, resp)
		assert.Empty(t, listed)
	})
}

func (s *IntegrationTestSuite) TestWalks() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.registerAndLogin(ctx, gofakeit.Username())

	jan1 := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	resp := s.apiRequest(ctx, "POST", "/api/walks", token, map[string]any{"miles": 2.5, "date": jan1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	added := decodeResponse[entries.WalkEntry](s, resp)
	assert.True(t, added.ID > 0)
	assert.Equal(t, 2.5, added.Miles)

	resp = s.apiRequest(ctx, "POST", "/api/walks", token, map[string]any{"miles": 1.5, "date": jan1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = s.apiRequest(ctx, "GET", "/api/walks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeResponse[[]entries.WalkEntry](s, resp)
	assert.Len(t, listed, 2)

	resp = s.apiRequest(ctx, "GET", "/api/walks/stats/daily", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	statsPoints := decodeResponse[[]entries.WalkStatsPoint](s, resp)
	require.Len(t, statsPoints, 1)
	assert.Equal(t, entries.WalkStatsPoint{Date: "01/01", Miles: 4}, statsPoints[0])
}

func (s *IntegrationTestSuite) TestPrefs() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.registerAndLogin(ctx, gofakeit.Username())

	// defaults to false
	resp := s.apiRequest(ctx, "GET", "/api/prefs/autosync", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	autoSync := decodeResponse[prefs.AutoSyncResponse](s, resp)
	assert.False(t, autoSync.AutoSync)

	resp = s.apiRequest(ctx, "PUT", "/api/prefs/autosync", token, prefs.AutoSyncResponse{AutoSync: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	setResp := decodeResponse[prefs.SetAutoSyncResponse](s, resp)
	assert.True(t, setResp.Success)

	resp = s.apiRequest(ctx, "GET", "/api/prefs/autosync", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	autoSync = decodeResponse[prefs.AutoSyncResponse](s, resp)
	assert.True(t, autoSync.AutoSync)

	t.Run("unauthorized without token", func(t *testing.T) {
		resp := s.apiRequest(ctx, "GET", "/api/prefs/autosync", "", nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// only the request validation paths are exercised here, the happy
// path needs a real ffmpeg binary and a Gemini API key
func (s *IntegrationTestSuite) TestFormCheck() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.registerAndLogin(ctx, gofakeit.Username())

	t.Run("unauthorized without token", func(t *testing.T) {
		resp := s.apiRequest(ctx, "POST", "/api/form-check", "", nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("video file missing", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("notvideo", "hello"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequestWithContext(ctx, "POST", serverEndpoint+"/api/form-check", &body)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(authTokenHeader, token)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		formCheckResp := decodeResponse[formcheck.Response](s, resp)
		assert.False(t, formCheckResp.Success)
		assert.Equal(t, "video file missing", formCheckResp.Message)
	})

	t.Run("unsupported video type", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		partHeader := textproto.MIMEHeader{}
		partHeader.Set("Content-Disposition", `form-data; name="video"; filename="pushups.txt"`)
		partHeader.Set("Content-Type", "text/plain")
		part, err := mw.CreatePart(partHeader)
		require.NoError(t, err)
		_, err = part.Write([]byte("definitely not a video"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequestWithContext(ctx, "POST", serverEndpoint+"/api/form-check", &body)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(authTokenHeader, token)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		formCheckResp := decodeResponse[formcheck.Response](s, resp)
		assert.False(t, formCheckResp.Success)
		assert.Contains(t, formCheckResp.Message, "unsupported video type")
	})
}
