package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grtshw/wedding-invitation/access"
	"github.com/grtshw/wedding-invitation/config"
	"github.com/grtshw/wedding-invitation/invitation"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/store"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC)

type memSettings struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *memSettings) GetSetting(key string, target any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	if !ok {
		return utils.ErrSettingNotFound
	}
	return json.Unmarshal(raw, target)
}

func (m *memSettings) PutSetting(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

type testServer struct {
	*server
	mem      *store.Memory
	notified []models.MessageRecord
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	mem := store.NewMemory()
	mem.SetClock(func() time.Time { return testNow })

	ts := &testServer{mem: mem}
	ts.server = &server{
		store:    mem,
		settings: &memSettings{values: map[string][]byte{}},
		resolver: access.NewResolver(mem, zerolog.Nop()),
		cfg: config.Config{
			PublicBaseURL:   "https://aufa-qois.example",
			DefaultLocale:   "en",
			GuestSessionTTL: time.Hour,
		},
		loc: loc,
		now: func() time.Time { return testNow },
	}
	ts.server.notify = func(m models.MessageRecord) {
		ts.notified = append(ts.notified, m)
	}
	return ts
}

func newEvent(method, target, body string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	re := &core.RequestEvent{}
	re.Request = req
	re.Response = rec
	return re, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedSiti(ts *testServer) {
	ts.mem.SeedGuest(models.GuestRecord{ID: "abc", Name: "Siti Aminah", Phone: "0812-3456-7890", Slug: "siti-aminah-x1y2", Created: testNow})
}

func TestPublicAccess(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		status   int
		wantName string
	}{
		{"by id", "?u=abc", http.StatusOK, "Siti Aminah"},
		{"by name ignoring case", "?to=siti%20aminah", http.StatusOK, "Siti Aminah"},
		{"guest alias", "?guest=SITI+AMINAH", http.StatusOK, "Siti Aminah"},
		{"id wins over matching name", "?u=missing&to=Siti+Aminah", http.StatusNotFound, ""},
		{"no params", "", http.StatusNotFound, ""},
		{"partial name", "?to=Siti", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			seedSiti(ts)

			re, rec := newEvent(http.MethodGet, "/api/public/access"+tt.query, "")
			require.NoError(t, ts.handlePublicAccess(re))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			if tt.status == http.StatusOK {
				assert.Equal(t, "granted", body["status"])
				assert.Equal(t, tt.wantName, body["name"])
				assert.NotEmpty(t, body["session"])
			} else {
				assert.Equal(t, "denied", body["status"])
				assert.Equal(t, "Invitation not found", body["error"])
				assert.NotContains(t, body, "name")
			}
		})
	}
}

func TestPublicAccessStoreFailureDenies(t *testing.T) {
	ts := newTestServer(t)
	seedSiti(ts)
	ts.mem.FailWith(errors.New("connection reset"))

	re, rec := newEvent(http.MethodGet, "/api/public/access?u=abc", "")
	require.NoError(t, ts.handlePublicAccess(re))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invitation not found", decode(t, rec)["error"])
}

func TestMessagesList(t *testing.T) {
	ts := newTestServer(t)
	ts.mem.SeedMessage(models.MessageRecord{ID: "1", Name: "A", Message: "Selamat", Attendance: models.AttendanceYes, CreatedAt: testNow.Add(-time.Hour)})
	ts.mem.SeedMessage(models.MessageRecord{ID: "2", Name: "B", Message: "Aamiin", ParentID: "1", CreatedAt: testNow.Add(-5 * time.Minute)})
	ts.mem.SeedMessage(models.MessageRecord{ID: "3", Name: "C", Message: "lost", ParentID: "99", CreatedAt: testNow})

	re, rec := newEvent(http.MethodGet, "/api/public/messages?lang=en", "")
	require.NoError(t, ts.handleMessagesList(re))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Threads []threadView `json:"threads"`
		Count   int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.Threads, 1)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "1", body.Threads[0].ID)
	assert.Equal(t, "1 hour ago", body.Threads[0].TimeAgo)
	require.Len(t, body.Threads[0].Replies, 1)
	assert.Equal(t, "5 minutes ago", body.Threads[0].Replies[0].TimeAgo)
}

func TestMessagesListIndonesian(t *testing.T) {
	ts := newTestServer(t)
	ts.mem.SeedMessage(models.MessageRecord{ID: "1", Name: "A", Message: "Selamat", Attendance: models.AttendanceYes, CreatedAt: testNow})

	re, rec := newEvent(http.MethodGet, "/api/public/messages", "")
	re.Request.Header.Set("Accept-Language", "id-ID,id;q=0.9")
	require.NoError(t, ts.handleMessagesList(re))

	assert.Contains(t, rec.Body.String(), "baru saja")
}

func TestMessageCreateValidation(t *testing.T) {
	tests := map[string]struct {
		body  string
		field string
	}{
		"empty name":         {`{"name":"  ","message":"hi","attendance":"yes"}`, "name"},
		"blank message":      {`{"name":"Budi","message":"   ","attendance":"yes"}`, "message"},
		"bad attendance":     {`{"name":"Budi","message":"hi","attendance":"perhaps"}`, "attendance"},
		"root no attendance": {`{"name":"Budi","message":"hi"}`, "attendance"},
		"too many guests":    {`{"name":"Budi","message":"hi","attendance":"yes","guest_count":21}`, "guest_count"},
		"bad email":          {`{"name":"Budi","message":"hi","attendance":"yes","email":"nope"}`, "email"},
		"long name":          {`{"name":"` + strings.Repeat("x", 101) + `","message":"hi","attendance":"yes"}`, "name"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			re, rec := newEvent(http.MethodPost, "/api/public/messages", tt.body)
			require.NoError(t, ts.handleMessageCreate(re))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			fields, ok := decode(t, rec)["fields"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)

			msgs, err := ts.mem.ListMessages(re.Request.Context())
			require.NoError(t, err)
			assert.Empty(t, msgs)
			assert.Empty(t, ts.notified)
		})
	}
}

func TestMessageCreateRootAndReply(t *testing.T) {
	ts := newTestServer(t)

	re, rec := newEvent(http.MethodPost, "/api/public/messages?lang=en", `{"name":" Budi ","message":"Selamat ya","attendance":"yes"}`)
	require.NoError(t, ts.handleMessageCreate(re))
	require.Equal(t, http.StatusCreated, rec.Code)
	root := decode(t, rec)
	assert.Equal(t, "Budi", root["name"])
	assert.Equal(t, "just now", root["time_ago"])
	require.Len(t, ts.notified, 1)

	re, rec = newEvent(http.MethodPost, "/api/public/messages", `{"name":"Ani","message":"Aamiin","parent_id":"`+root["id"].(string)+`"}`)
	require.NoError(t, ts.handleMessageCreate(re))
	require.Equal(t, http.StatusCreated, rec.Code)
	reply := decode(t, rec)
	assert.Len(t, ts.notified, 1, "replies do not notify")

	re, rec = newEvent(http.MethodPost, "/api/public/messages", `{"name":"Ani","message":"nested","parent_id":"`+reply["id"].(string)+`"}`)
	require.NoError(t, ts.handleMessageCreate(re))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "parent_id")

	msgs, err := ts.mem.ListMessages(re.Request.Context())
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestMessageCreateWithGuestSession(t *testing.T) {
	ts := newTestServer(t)
	seedSiti(ts)
	token, err := utils.CreateGuestSession("abc", time.Hour, testNow)
	require.NoError(t, err)

	re, rec := newEvent(http.MethodPost, "/api/public/messages", `{"name":"Siti Aminah","message":"Insya Allah hadir","attendance":"no"}`)
	re.Request.Header.Set(utils.GuestSessionHeader, token)
	require.NoError(t, ts.handleMessageCreate(re))
	require.Equal(t, http.StatusCreated, rec.Code)

	g, err := ts.mem.FindGuestByID(re.Request.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, models.RSVPNotAttending, g.RSVPStatus)

	msgs, err := ts.mem.ListMessages(re.Request.Context())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "abc", msgs[0].GuestID)
	assert.Equal(t, 1, msgs[0].GuestCount)
}

func TestMessageCreateIgnoresBadSession(t *testing.T) {
	ts := newTestServer(t)
	seedSiti(ts)

	re, rec := newEvent(http.MethodPost, "/api/public/messages", `{"name":"Siti Aminah","message":"hadir","attendance":"yes"}`)
	re.Request.Header.Set(utils.GuestSessionHeader, "forged.token")
	require.NoError(t, ts.handleMessageCreate(re))
	require.Equal(t, http.StatusCreated, rec.Code)

	g, err := ts.mem.FindGuestByID(re.Request.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, models.RSVPUnconfirmed, g.RSVPStatus)
}

func TestMessageCreateStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.mem.FailWith(errors.New("disk full"))

	re, rec := newEvent(http.MethodPost, "/api/public/messages", `{"name":"Budi","message":"hi","attendance":"maybe"}`)
	require.NoError(t, ts.handleMessageCreate(re))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, ts.notified)
}

func TestPublicWedding(t *testing.T) {
	ts := newTestServer(t)

	re, rec := newEvent(http.MethodGet, "/api/public/wedding", "")
	require.NoError(t, ts.handlePublicWedding(re))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Countdown struct {
			Days   int  `json:"days"`
			Hours  int  `json:"hours"`
			Passed bool `json:"passed"`
		} `json:"countdown"`
		Timezone string `json:"timezone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// 2025-12-20 09:00 UTC to 2025-12-25 09:00 WIB (02:00 UTC)
	assert.Equal(t, 4, body.Countdown.Days)
	assert.Equal(t, 17, body.Countdown.Hours)
	assert.False(t, body.Countdown.Passed)
	assert.Equal(t, "Asia/Jakarta", body.Timezone)
}

func TestGuestInvite(t *testing.T) {
	ts := newTestServer(t)
	seedSiti(ts)
	require.NoError(t, ts.settings.PutSetting(utils.SettingWATemplate, "Halo {name}, buka {link}"))

	re, rec := newEvent(http.MethodGet, "/api/guests/abc/invite", "")
	re.Request.SetPathValue("id", "abc")
	require.NoError(t, ts.handleGuestInvite(re))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "https://aufa-qois.example/?u=abc", body["link"])
	assert.Equal(t, "Halo Siti Aminah, buka https://aufa-qois.example/?u=abc", body["message"])
	assert.True(t, strings.HasPrefix(body["whatsapp_url"].(string), "https://wa.me/6281234567890?text="))
}

func TestGuestQR(t *testing.T) {
	ts := newTestServer(t)
	seedSiti(ts)

	re, rec := newEvent(http.MethodGet, "/api/guests/abc/qr", "")
	re.Request.SetPathValue("id", "abc")
	require.NoError(t, ts.handleGuestQR(re))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
}

func TestGuestNotFound(t *testing.T) {
	ts := newTestServer(t)

	re, rec := newEvent(http.MethodGet, "/api/guests/nope", "")
	re.Request.SetPathValue("id", "nope")
	require.NoError(t, ts.handleGuestGet(re))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestCreateDuplicatePhone(t *testing.T) {
	ts := newTestServer(t)
	seedSiti(ts)

	re, rec := newEvent(http.MethodPost, "/api/guests", `{"name":"Budi","phone":"+62 812 3456 7890"}`)
	require.NoError(t, ts.handleGuestCreate(re))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGuestsBatch(t *testing.T) {
	t.Run("all inserted", func(t *testing.T) {
		ts := newTestServer(t)
		re, rec := newEvent(http.MethodPost, "/api/guests/batch",
			`{"guests":[{"name":"Budi","phone":"0811111111"},{"name":"","phone":""},{"name":"Ani","phone":"0822222222","category":"Family"}]}`)
		require.NoError(t, ts.handleGuestsBatch(re))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.EqualValues(t, 2, decode(t, rec)["created"])
	})

	t.Run("half-filled row rejected", func(t *testing.T) {
		ts := newTestServer(t)
		re, rec := newEvent(http.MethodPost, "/api/guests/batch", `{"guests":[{"name":"Budi","phone":"0811111111"},{"name":"Ani"}]}`)
		require.NoError(t, ts.handleGuestsBatch(re))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		guests, err := ts.mem.ListGuests(re.Request.Context())
		require.NoError(t, err)
		assert.Empty(t, guests)
	})

	t.Run("existing phone rolls back", func(t *testing.T) {
		ts := newTestServer(t)
		seedSiti(ts)
		re, rec := newEvent(http.MethodPost, "/api/guests/batch",
			`{"guests":[{"name":"Budi","phone":"0811111111"},{"name":"Ani","phone":"081234567890"}]}`)
		require.NoError(t, ts.handleGuestsBatch(re))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "081234567890")

		guests, err := ts.mem.ListGuests(re.Request.Context())
		require.NoError(t, err)
		assert.Len(t, guests, 1)
	})

	t.Run("phone repeated in batch", func(t *testing.T) {
		ts := newTestServer(t)
		re, rec := newEvent(http.MethodPost, "/api/guests/batch",
			`{"guests":[{"name":"Budi","phone":"0811111111"},{"name":"Ani","phone":"62811111111"}]}`)
		require.NoError(t, ts.handleGuestsBatch(re))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWeddingPutValidates(t *testing.T) {
	ts := newTestServer(t)

	re, rec := newEvent(http.MethodPut, "/api/settings/wedding", `{"bride":{"full_name":"A"}}`)
	require.NoError(t, ts.handleWeddingPut(re))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var stored map[string]any
	assert.ErrorIs(t, ts.settings.GetSetting(utils.SettingWedding, &stored), utils.ErrSettingNotFound)
}

func TestCommentDelete(t *testing.T) {
	ts := newTestServer(t)
	ts.mem.SeedMessage(models.MessageRecord{ID: "1", Name: "A", Message: "root", CreatedAt: testNow})
	ts.mem.SeedMessage(models.MessageRecord{ID: "2", Name: "B", Message: "reply", ParentID: "1", CreatedAt: testNow})

	re, rec := newEvent(http.MethodDelete, "/api/comments/1", "")
	re.Request.SetPathValue("id", "1")
	require.NoError(t, ts.handleCommentDelete(re))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	msgs, err := ts.mem.ListMessages(re.Request.Context())
	require.NoError(t, err)
	assert.Empty(t, msgs)

	re, rec = newEvent(http.MethodDelete, "/api/comments/1", "")
	re.Request.SetPathValue("id", "1")
	require.NoError(t, ts.handleCommentDelete(re))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchMessages(t *testing.T) {
	msgs := []models.MessageRecord{
		{ID: "1", Name: "Budi", Message: "Selamat"},
		{ID: "2", Name: "Ani", Message: "Barakallah"},
		{ID: "3", Name: "Citra", Message: "selamat menempuh"},
	}

	var ids []string
	for _, m := range searchMessages(msgs, "SELAMAT") {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"3", "1"}, ids)
	assert.Len(t, searchMessages(msgs, ""), 3)
}

func TestFilterGuests(t *testing.T) {
	guests := []models.GuestRecord{
		{ID: "1", Name: "Siti Aminah", Category: "Family"},
		{ID: "2", Name: "Budi", Category: "Friends"},
		{ID: "3", Name: "Aminah Putri", Category: "Friends"},
	}

	assert.Len(t, filterGuests(guests, "aminah", ""), 2)
	assert.Len(t, filterGuests(guests, "aminah", "Friends"), 1)
	assert.Len(t, filterGuests(guests, "", ""), 3)
}

func TestMessageCreateNormalizesAttendance(t *testing.T) {
	ts := newTestServer(t)

	re, rec := newEvent(http.MethodPost, "/api/public/messages", `{"name":"Budi","message":"Hadir","attendance":" MAYBE "}`)
	require.NoError(t, ts.handleMessageCreate(re))
	require.Equal(t, http.StatusCreated, rec.Code)

	msgs, err := ts.mem.ListMessages(re.Request.Context())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.AttendanceMaybe, msgs[0].Attendance)
}

func TestPublicWeddingStoredDetails(t *testing.T) {
	ts := newTestServer(t)

	custom := invitation.Default
	custom.Quote = "Barakallahu lakuma"
	require.NoError(t, ts.settings.PutSetting(utils.SettingWedding, custom))
	assert.Equal(t, "Barakallahu lakuma", ts.weddingDetails().Quote)

	require.NoError(t, ts.settings.PutSetting(utils.SettingWedding, map[string]any{"bride": map[string]string{"full_name": ""}}))
	assert.Equal(t, invitation.Default.Bride.FullName, ts.weddingDetails().Bride.FullName)

	require.NoError(t, ts.settings.PutSetting(utils.SettingWedding, "not an object"))
	assert.Equal(t, invitation.Default.Quote, ts.weddingDetails().Quote)
}
